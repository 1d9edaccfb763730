/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	analyzeCmd "github.com/mpapenbr/iracelog-stewarding-go/pkg/cmd/analyze"
	archiveCmd "github.com/mpapenbr/iracelog-stewarding-go/pkg/cmd/archive"
	inspectCmd "github.com/mpapenbr/iracelog-stewarding-go/pkg/cmd/inspect"
	migrateCmd "github.com/mpapenbr/iracelog-stewarding-go/pkg/cmd/migrate"
	runCmd "github.com/mpapenbr/iracelog-stewarding-go/pkg/cmd/run"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/config"
	"github.com/mpapenbr/iracelog-stewarding-go/version"
)

const envPrefix = "ISW"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "isw",
	Short:   "Incident detection for iRacing sessions",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.isw.yml)")

	rootCmd.PersistentFlags().StringVar(&config.DB, "db",
		"postgresql://DB_USERNAME:DB_USER_PASSWORD@DB_HOST:5432/iracelog",
		"Connection string for the archive database")
	rootCmd.PersistentFlags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")

	// add commands here
	rootCmd.AddCommand(runCmd.NewRunCmd())
	rootCmd.AddCommand(analyzeCmd.NewAnalyzeCmd())
	rootCmd.AddCommand(inspectCmd.NewInspectCmd())
	rootCmd.AddCommand(migrateCmd.NewMigrateCmd())
	rootCmd.AddCommand(archiveCmd.NewArchiveCmd())
}

// initConfig reads the config file and binds ISW_* environment variables
func initConfig() {
	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".isw")
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}
	bindCommandTree(rootCmd, v)
}

func bindCommandTree(cmd *cobra.Command, v *viper.Viper) {
	bindFlags(cmd, v)
	for _, sub := range cmd.Commands() {
		bindCommandTree(sub, v)
	}
}

// envKey maps a flag name to its environment variable, e.g. http-addr to ISW_HTTP_ADDR
func envKey(flagName string) string {
	return fmt.Sprintf("%s_%s", envPrefix,
		strings.ToUpper(strings.ReplaceAll(flagName, "-", "_")))
}

// bindFlags applies values from the config file or the environment to flags
// not set on the command line
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			if err := v.BindEnv(f.Name, envKey(f.Name)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v\n", f.Name, err)
			}
		}
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
			fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v\n", f.Name, err)
		}
	})
}
