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

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/billsplitter/internal/billapi"
	"github.com/mmynk/billsplitter/internal/config"
	"github.com/mmynk/billsplitter/internal/metrics"
	"github.com/mmynk/billsplitter/internal/telemetry"
	"github.com/mmynk/billsplitter/internal/web"
	"github.com/mmynk/billsplitter/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet.
		logging.Setup("info")
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	client := billapi.New(cfg.APIBaseURL,
		billapi.WithTimeout(cfg.APITimeout),
		billapi.WithTracerProvider(tp),
		billapi.WithMetrics(m),
	)

	pages, err := web.NewServer(client, []byte(cfg.SessionSecret), web.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		// h2c lets HTTP/2 clients talk to us without TLS.
		Handler:           h2c.NewHandler(pages.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Web server starting",
			"address", srv.Addr,
			"url", fmt.Sprintf("http://localhost%s", srv.Addr),
			"api", cfg.APIBaseURL,
			"api_timeout", cfg.APITimeout,
			"metrics", cfg.MetricsEnabled,
			"tracing", cfg.OTLPEndpoint != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
