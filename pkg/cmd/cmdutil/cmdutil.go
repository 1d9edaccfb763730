// Package cmdutil holds the setup shared by the commands.
package cmdutil

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/config"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/utils"
)

// AddLogFlags registers the logging flags on cmd
func AddLogFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format (json, text)")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"yaml file with log levels per logger name")
}

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// NewLogger creates a logger according to the log flags
func NewLogger(levelName string) *log.Logger {
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			ParseLogLevel(levelName, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		return log.DevLogger(
			os.Stderr,
			ParseLogLevel(levelName, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
}

// SetupLogger replaces the default logger according to the log flags
func SetupLogger() *log.Logger {
	logger := NewLogger(config.LogLevel)
	if config.LogConfig != "" {
		cfg, err := log.LoadConfig(config.LogConfig)
		if err == nil {
			logger, err = log.ApplyConfig(logger, cfg)
		}
		if err != nil {
			logger.Warn("Could not apply log config",
				log.String("file", config.LogConfig), log.ErrorField(err))
		}
	}
	log.ResetDefault(logger)
	return logger
}

// WaitForServices waits for the tcp endpoints of the given addresses.
// Empty addresses are ignored.
func WaitForServices(ctx context.Context, addrs ...string) error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		if err := utils.WaitForTCP(ctx, addr, timeout); err != nil {
			return err
		}
	}
	return nil
}

// DBAddr returns the address of the configured database
func DBAddr() string {
	return utils.ExtractFromDBURL(config.DB)
}
