package main

import (
	"github.com/spf13/cobra"

	"github.com/memorialnav/candle-ledger/internal/infra/database"
	"github.com/memorialnav/candle-ledger/internal/infra/providers"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mustConfig(cmd)
			log := commonRun(cfg)

			db, err := database.Open(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := providers.MigrateDatabase(db); err != nil {
				return err
			}
			log.Info().Str("driver", cfg.Database.Driver).Msg("migration complete")
			return nil
		},
	}
}
