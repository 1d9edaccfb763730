package migrate

import (
	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/config"
	dbmigrate "github.com/mpapenbr/iracelog-stewarding-go/pkg/db/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "creates or updates the archive database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			return startMigration(cmd)
		},
	}
	cmdutil.AddLogFlags(cmd)
	return cmd
}

func startMigration(cmd *cobra.Command) error {
	if err := cmdutil.WaitForServices(cmd.Context(), cmdutil.DBAddr()); err != nil {
		log.Error("database not ready", log.ErrorField(err))
		return err
	}
	if err := dbmigrate.MigrateDB(config.DB); err != nil {
		log.Error("migration failed", log.ErrorField(err))
		return err
	}
	version, dirty, err := dbmigrate.Version(config.DB)
	if err != nil {
		return err
	}
	log.Info("Database migrated", log.Uint("version", version), log.Bool("dirty", dirty))
	return nil
}
