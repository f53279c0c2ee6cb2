package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/memorialnav/candle-ledger/internal/config"
	"github.com/memorialnav/candle-ledger/internal/infra/providers"
	"github.com/memorialnav/candle-ledger/internal/interface/rest"
	"github.com/memorialnav/candle-ledger/internal/interface/rest/middleware"
	"github.com/memorialnav/candle-ledger/internal/telemetry"
	"github.com/memorialnav/candle-ledger/internal/worker"
)

func serveCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd, mustConfig(cmd), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply database migrations before serving")
	return cmd
}

func serveRun(cmd *cobra.Command, cfg *config.Config, migrate bool) error {
	log := commonRun(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Trace, cfg.Server.ServiceName)
	if err != nil {
		return err
	}

	app, err := providers.Build(ctx, *cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	if migrate {
		if err := providers.MigrateDatabase(app.DB); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.Logger(log)...)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(otelecho.Middleware(cfg.Server.ServiceName))
	e.Use(middleware.NewAuthMiddleware(app.Auth).IdentifyUser)

	rest.NewHandler(app.Candle, app.Health, cfg.Auth.Required).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))

	if cfg.Reconcile.Interval > 0 {
		w := worker.NewReconcileWorker(app.Reconcile, worker.Config{
			Interval: cfg.Reconcile.Interval,
			Repair:   cfg.Reconcile.Repair,
		}, log)
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("reconcile worker exit")
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Server.Listen).Msg("http server starting")
		if err := e.Start(cfg.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "http server")
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	return nil
}
