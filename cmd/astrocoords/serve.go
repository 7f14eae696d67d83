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
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/astrocoords/internal/api"
	"github.com/star/astrocoords/internal/config"
	"github.com/star/astrocoords/internal/health"
	"github.com/star/astrocoords/internal/stream"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and sidereal clock stream",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	cfgPath, _ := cmd.Flags().GetString("config")
	v, err := config.New(cfgPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v, logger)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	lvl, _ := config.ParseLevel(cfg.LogLevel)
	level.Set(lvl)
	config.Watch(v, level, logger)

	readiness := &health.Readiness{}
	streamHandler := stream.NewHandler(stream.Config{
		MaxConcurrentPerIP: cfg.Stream.MaxConcurrent,
		DefaultInterval:    cfg.Stream.DefaultInterval,
		KeepaliveInterval:  cfg.Stream.KeepaliveInterval,
		TrustProxy:         cfg.TrustProxy,
	}, logger)

	srv := api.NewServer(cfg, logger, readiness, streamHandler)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.HTTPAddr, err)
	}

	// Open streams end when the signal context is cancelled.
	srv.HTTPServer().BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", ln.Addr().String(), "auth_enabled", cfg.Auth.Enabled)
		if err := srv.HTTPServer().Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	readiness.SetReady(true)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server listen error", "error", err)
			return err
		}
	}

	readiness.SetReady(false)
	logger.Info("shutting down server...", "active_streams", streamHandler.Active())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
