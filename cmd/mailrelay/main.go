// Command mailrelay runs the stateless SMTP relay: a single HTTP send
// endpoint in front of an upstream SMTP server. It holds no queue and no
// database; retry policy lives with its callers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arkline/erp-api/internal/bootstrap"
	"github.com/arkline/erp-api/internal/mailrelay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadRelayConfig()
	if err != nil {
		return err
	}

	smtpCfg := mailrelay.SMTPConfig{
		Host:              cfg.SMTP.Host,
		Port:              cfg.SMTP.Port,
		Username:          cfg.SMTP.Username,
		Password:          cfg.SMTP.Password,
		FromAddress:       cfg.SMTP.FromAddress,
		FromName:          cfg.SMTP.FromName,
		UnsubscribeMailto: cfg.SMTP.UnsubscribeMailto,
	}

	sender, err := mailrelay.NewSMTPSender(smtpCfg)
	if err != nil {
		return fmt.Errorf("build smtp sender: %w", err)
	}

	relay := mailrelay.NewServer(mailrelay.ServerOptions{
		Sender:    sender,
		SMTP:      smtpCfg,
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      relay.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.InfoContext(groupCtx, "starting mail relay",
			"addr", server.Addr,
			"smtp_host", cfg.SMTP.Host,
			"smtp_port", cfg.SMTP.Port,
			"auth_required", cfg.JWTSecret != "")
		if serveErr := server.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("relay server: %w", serveErr)
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down mail relay")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("relay shutdown: %w", shutdownErr)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("mail relay stopped")
	return nil
}
