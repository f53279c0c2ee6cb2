package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/memorialnav/candle-ledger/internal/domain"
	"github.com/memorialnav/candle-ledger/internal/infra/providers"
)

type lightingHistory interface {
	ListByGrave(ctx context.Context, graveType domain.GraveType, graveID string) ([]domain.Lighting, error)
}

func reconcileCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Raise candle counters that lag behind the lighting ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mustConfig(cmd)
			log := commonRun(cfg)
			ctx := log.WithContext(cmd.Context())

			app, err := providers.Build(ctx, *cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			drifts, err := app.Reconcile.Run(ctx, !dryRun)
			if err != nil {
				return err
			}

			var history lightingHistory
			if dryRun {
				history = app.Ledger
			}
			return writeDrifts(ctx, cmd.OutOrStdout(), drifts, history)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report drift and the ledger rows behind it without changing counters")
	return cmd
}

// writeDrifts prints one line per drift, followed by its ledger rows when
// history is set.
func writeDrifts(ctx context.Context, out io.Writer, drifts []domain.Drift, history lightingHistory) error {
	for _, d := range drifts {
		fmt.Fprintf(out, "%s\t%s\trecorded=%d\tledger=%d\trepaired=%t\n",
			d.GraveType, d.GraveID, d.Recorded, d.Ledger, d.Repaired)
		if history == nil {
			continue
		}
		lightings, err := history.ListByGrave(ctx, d.GraveType, d.GraveID)
		if err != nil {
			return err
		}
		for _, l := range lightings {
			fmt.Fprintf(out, "  #%d\t%s\t%s\n", l.ID, l.UserID, l.LitAt.Format(time.RFC3339))
		}
	}
	fmt.Fprintf(out, "%d grave(s) behind the ledger\n", len(drifts))
	return nil
}
