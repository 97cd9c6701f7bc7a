package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rendis/chatflow/internal/api"
	"github.com/rendis/chatflow/internal/logging"
	"github.com/rendis/chatflow/internal/store"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0" ./cmd/flowstore/
var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig()
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.ListenAddr, "error", err)
		os.Exit(1)
	}
	if err := serve(ctx, ln, cfg, logger); err != nil {
		logger.Error("flowstore stopped", "error", err)
		os.Exit(1)
	}
}

// serve opens the store, runs migrations and serves the Flow Storage API on
// ln until ctx is cancelled.
func serve(ctx context.Context, ln net.Listener, cfg Config, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	s, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if len(cfg.Tokens) == 0 {
		logger.Warn("no tokens configured, authentication disabled")
	}

	srv := &http.Server{
		Handler: api.NewServer(api.Deps{
			Store:             s,
			Tokens:            cfg.Tokens,
			EncodeGraphAsText: cfg.EncodeGraphAsText,
			Logger:            logger,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("flowstore listening", "addr", ln.Addr().String(), "db_path", cfg.DBPath, "version", version)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
