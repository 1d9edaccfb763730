package archive

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/archive"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/config"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/db/postgres"
)

func NewArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "queries archived runs",
	}
	cmd.AddCommand(newListCmd(), newShowCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "lists the archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			pool, err := postgres.InitWithURL(cmd.Context(), config.DB)
			if err != nil {
				return err
			}
			defer pool.Close()
			runs, err := archive.Runs(cmd.Context(), pool)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSOURCE\tSTARTED\tFINISHED\tMESSAGES")
			for i := range runs {
				finished := "-"
				if runs[i].FinishedAt != nil {
					finished = runs[i].FinishedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					runs[i].ID, runs[i].Source,
					runs[i].StartedAt.Format(time.RFC3339), finished, runs[i].Messages)
			}
			return w.Flush()
		},
	}
	cmdutil.AddLogFlags(cmd)
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show run-id",
		Short: "prints the archived messages of a run as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			pool, err := postgres.InitWithURL(cmd.Context(), config.DB)
			if err != nil {
				return err
			}
			defer pool.Close()
			msgs, err := archive.Load(cmd.Context(), pool, runID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for i := range msgs {
				if err := enc.Encode(msgs[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmdutil.AddLogFlags(cmd)
	return cmd
}
