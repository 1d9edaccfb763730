package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/config"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/model"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/processing"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/source"
)

type analyzeConfig struct {
	output   string
	summary  bool
	detector config.DetectorConfig
}

func NewAnalyzeCmd() *cobra.Command {
	ac := analyzeConfig{detector: config.DefaultDetectorConfig()}
	cmd := &cobra.Command{
		Use:   "analyze recording",
		Short: "detects incidents in a recording and prints them as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.ApplyDetectorFlags(&ac.detector)
			cmdutil.SetupLogger()
			out := cmd.OutOrStdout()
			if ac.output != "" {
				f, err := os.Create(ac.output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return analyze(cmd.Context(), args[0], out, &ac)
		},
	}
	cmdutil.AddLogFlags(cmd)
	cmd.Flags().StringVarP(&ac.output,
		"output",
		"o",
		"",
		"write the incidents to this file instead of stdout")
	cmd.Flags().BoolVar(&ac.summary,
		"summary",
		false,
		"print the number of incidents per type instead of the incidents")
	config.AddDetectorFlags(cmd.Flags(), &ac.detector)
	return cmd
}

//nolint:whitespace // editor/linter issue
func analyze(
	ctx context.Context, file string, out io.Writer, ac *analyzeConfig,
) error {
	src, err := source.OpenFile(file)
	if err != nil {
		return err
	}
	defer src.Close()

	watchers, err := processing.NewWatcherSet(ac.detector, log.Default().Named("watcher"))
	if err != nil {
		return err
	}
	proc := processing.NewProcessor(processing.WithWatchers(watchers))
	if err := proc.Run(ctx, src); err != nil {
		return err
	}
	incidents := proc.Store().Incidents()
	log.Info("Analysis finished",
		log.String("file", file),
		log.Int("lines", src.Lines()),
		log.Int("incidents", len(incidents)))

	if ac.summary {
		return writeSummary(out, incidents)
	}
	enc := json.NewEncoder(out)
	for i := range incidents {
		if err := enc.Encode(incidents[i].Data); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(out io.Writer, incidents []model.Incident) error {
	counts := lo.CountValuesBy(incidents, func(inc model.Incident) model.IncidentType {
		return inc.Data.Type
	})
	keys := lo.Keys(counts)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if _, err := fmt.Fprintf(out, "%-28s %d\n", k, counts[k]); err != nil {
			return err
		}
	}
	return nil
}
