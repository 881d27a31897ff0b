package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"osu-mp-tracker/internal/config"
	"osu-mp-tracker/internal/constants"
	fxmodules "osu-mp-tracker/internal/fx"
	"osu-mp-tracker/internal/server"
	"osu-mp-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(runWorkers),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	trackerServer *server.TrackerServer,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: server.NewHandler(trackerServer, logger),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

// runWorkers drives discovery, fetching and rating in the background for the
// lifetime of the app.
func runWorkers(
	lc fx.Lifecycle,
	discovery *service.DiscoveryService,
	updater *service.SessionUpdater,
	processor *service.RatingProcessor,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	if !cfg.WorkersEnabled {
		logger.Info().Msg("background workers disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			g.Go(func() error { return discovery.Run(gctx) })
			g.Go(func() error { return updater.Run(gctx) })
			g.Go(func() error { return processor.Run(gctx) })
			logger.Info().Msg("background workers started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			done := make(chan error, 1)
			go func() { done <- g.Wait() }()
			select {
			case err := <-done:
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("worker stopped with error")
				}
				logger.Info().Msg("background workers stopped")
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
