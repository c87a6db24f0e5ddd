package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/profilegate/screener/config"
	"github.com/profilegate/screener/internal/adapters/reaper"
	"github.com/profilegate/screener/internal/adapters/scorerunner"
)

// RunOptions groups dependencies for Run.
type RunOptions struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// Run starts every enabled service and blocks until a shutdown signal
// arrives or a service fails. Returns nil on graceful shutdown.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil || opts.Services == nil {
		return errors.New("config and services are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := opts.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeHTTP] {
		server := NewHTTPServer(opts.Config.HTTP, opts.Services, logger)
		group.Go(func() error {
			logger.InfoContext(groupCtx, "starting HTTP server", "addr", server.Addr)
			if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", serveErr)
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.Config.HTTP.ShutdownTimeout)
			defer cancel()
			if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
				return fmt.Errorf("http shutdown: %w", shutdownErr)
			}
			return nil
		})
	}

	if enabled[config.ServiceModeScoreRunner] {
		runner, runnerErr := scorerunner.NewRunner(scorerunner.RunnerOptions{
			Jobs:        opts.Services.Jobs,
			Scorer:      opts.Services.Scorer,
			Provider:    opts.Services.Provider,
			Lease:       opts.Config.ScoreRunner.JobLease,
			Concurrency: opts.Config.ScoreRunner.Concurrency,
			Logger:      logger,
			Metrics:     opts.Services.MetricsSink,
		})
		if runnerErr != nil {
			return fmt.Errorf("wire score runner: %w", runnerErr)
		}
		group.Go(func() error {
			if runErr := runner.Run(groupCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("score runner: %w", runErr)
			}
			return nil
		})
	}

	if enabled[config.ServiceModeReaper] {
		runner, runnerErr := reaper.NewRunner(reaper.RunnerOptions{
			DB:      opts.DB,
			Config:  opts.Config.Reaper,
			Logger:  logger,
			Repo:    opts.Services.JobRepo,
			Metrics: opts.Services.MetricsSink,
		})
		if runnerErr != nil {
			return fmt.Errorf("wire reaper: %w", runnerErr)
		}
		group.Go(func() error {
			if runErr := runner.Run(groupCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("reaper: %w", runErr)
			}
			return nil
		})
	}

	err = group.Wait()

	// Stop the notifier listener after all consumers have exited.
	opts.Services.Jobs.StopNotifier()
	if opts.Services.MetricsSink != nil {
		if closeErr := opts.Services.MetricsSink.Close(); closeErr != nil {
			logger.Error("close metrics sink failed", "error", closeErr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("all services stopped")
	return nil
}
