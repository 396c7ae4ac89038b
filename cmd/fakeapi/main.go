// Command fakeapi serves the reference bill-splitting API on SQLite, for
// running the web client locally without the real backend.
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

	"github.com/mmynk/billsplitter/internal/apitest"
	"github.com/mmynk/billsplitter/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup(getEnv("LOG_LEVEL", "debug"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("Fake API failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is done, then shuts down and closes the store.
func run(ctx context.Context) error {
	dbPath := getEnv("DB_PATH", "./data/bills.db")
	addr := ":" + getEnv("PORT", "8000")

	store, err := apitest.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	srv := &http.Server{
		Addr:              addr,
		Handler:           apitest.New(store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Fake API starting", "address", addr)
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
