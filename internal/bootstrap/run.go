package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/arkline/erp-api/config"
)

// RunOptions groups dependencies for the service run group.
type RunOptions struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServices starts every enabled service and blocks until the context is
// cancelled or one of them fails. Shutdown is cooperative: cancelling the
// group context stops the workers, and the HTTP server drains within the
// configured shutdown timeout.
func RunServices(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("run options missing AppConfig")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := opts.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	g, groupCtx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeHTTP] {
		server := NewHTTPServer(opts.Config, opts.Services, logger)

		g.Go(func() error {
			logger.InfoContext(groupCtx, "starting HTTP server", "addr", server.Addr)
			if serveErr := server.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", serveErr)
			}
			return nil
		})
		g.Go(func() error {
			<-groupCtx.Done()
			logger.Info("shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.Config.HTTP.ShutdownTimeout)
			defer cancel()
			if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
				return fmt.Errorf("http shutdown: %w", shutdownErr)
			}
			return nil
		})
	}

	if enabled[config.ServiceModeDispatcher] {
		g.Go(func() error {
			logger.InfoContext(groupCtx, "starting dispatch worker")
			if runErr := opts.Services.Dispatcher.Run(groupCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("dispatch worker: %w", runErr)
			}
			return nil
		})
	}

	if enabled[config.ServiceModeReminder] {
		g.Go(func() error {
			logger.InfoContext(groupCtx, "starting reminder scheduler", "schedule", opts.Config.Reminder.Schedule)
			if runErr := opts.Services.Reminder.Run(groupCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("reminder scheduler: %w", runErr)
			}
			return nil
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("all services stopped")
	return nil
}
