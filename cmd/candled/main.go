package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/memorialnav/candle-ledger/internal/config"
	"github.com/memorialnav/candle-ledger/internal/logger"
)

const (
	programName = "candled"
)

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

// commonRun sets up logging and GOMAXPROCS for every subcommand.
func commonRun(cfg *config.Config) zerolog.Logger {
	l := logger.New(cfg.Server.ServiceName, globalFlags.debug)
	logger.SetGlobal(l)

	_, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		l.Debug().Str("component", programName).Msgf(format, v...)
	}))
	if err != nil {
		l.Fatal().Err(err).Msg("maxprocs")
	}
	l.Info().Str("version", version).Msg(programName + " starting")
	return l
}

func mustConfig(cmd *cobra.Command) *config.Config {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		log.Fatal().Msg("no config found in context")
	}
	return cfg
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Candle-lighting ledger for cemetery graves",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd, mustConfig(cmd), true)
		},
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(config.WithContext(cmd.Context(), &cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(reconcileCommand())
	rootCmd.AddCommand(seedCommand())
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
