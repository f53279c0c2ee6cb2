package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/memorialnav/candle-ledger/internal/domain"
	"github.com/memorialnav/candle-ledger/internal/infra/providers"
)

func seedCommand() *cobra.Command {
	var (
		id    string
		name  string
		count int64
	)
	cmd := &cobra.Command{
		Use:   "seed <adult|child|bone>",
		Short: "Create a grave so candles can be lit on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graveType, err := domain.ParseGraveType(args[0])
			if err != nil {
				return err
			}
			if id == "" {
				id = uuid.NewString()
			}
			if err := domain.ValidateIdentifier("id", id); err != nil {
				return err
			}
			if count < 0 {
				return fmt.Errorf("count must not be negative")
			}

			cfg := mustConfig(cmd)
			log := commonRun(cfg)
			ctx := log.WithContext(cmd.Context())

			app, err := providers.Build(ctx, *cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := providers.MigrateDatabase(app.DB); err != nil {
				return err
			}

			grave, err := app.Graves[graveType].Create(ctx, domain.Grave{ID: id, Name: name, CandleCount: count})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tcandles=%d\n", grave.Type, grave.ID, grave.Name, grave.CandleCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "grave id (random uuid when empty)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().Int64Var(&count, "count", 0, "initial candle count")
	return cmd
}
