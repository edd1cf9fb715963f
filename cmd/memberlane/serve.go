// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/memberlane/memberlane/internal/auth"
	authpg "github.com/memberlane/memberlane/internal/auth/postgres"
	"github.com/memberlane/memberlane/internal/config"
	"github.com/memberlane/memberlane/internal/logging"
	"github.com/memberlane/memberlane/internal/observability"
	"github.com/memberlane/memberlane/internal/store"
	"github.com/memberlane/memberlane/internal/web"
	"github.com/memberlane/memberlane/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		Long: `Start the HTTP service serving registration, login, session, and
password-change endpoints, plus a separate metrics/health listener.`,
		RunE: runServe,
	}

	// Flag defaults mirror the config defaults so an unchanged flag never
	// masks a value from the file or the environment.
	def := config.Default()
	cmd.Flags().String("http.addr", def.HTTP.Addr, "HTTP listen address")
	cmd.Flags().String("observability.addr", def.Observability.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().Duration("session.ttl", def.Session.TTL, "session lifetime")
	cmd.Flags().Duration("session.purge_interval", def.Session.PurgeInterval, "interval between expired-session sweeps")
	cmd.Flags().String("log.level", def.Log.Level, "log level (debug, info, warn, error)")
	cmd.Flags().String("log.format", def.Log.Format, "log format (json or text)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("memberlane", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	service, err := auth.NewService(authpg.NewAccountRepository(pool), auth.NewArgon2idHasher())
	if err != nil {
		return err
	}
	authority, err := auth.NewSessionAuthority(authpg.NewSessionRepository(pool), cfg.Session.TTL)
	if err != nil {
		return err
	}

	// Observability runs on its own listener so the metrics surface is never
	// exposed on the public address.
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Observability.Addr != "" {
		obsServer = observability.NewServer(cfg.Observability.Addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()

		obsErrCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	webServer, err := web.NewServer(service, authority, metrics, cfg.Session.TTL, slog.Default())
	if err != nil {
		return err
	}
	webErrCh, err := webServer.Start(cfg.HTTP.Addr)
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	go purgeExpiredSessions(ctx, authority, cfg.Session.PurgeInterval)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Service started")
	slog.Info("service ready",
		"http_addr", cfg.HTTP.Addr,
		"observability_addr", cfg.Observability.Addr,
	)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the run context when a server reports a fatal
// error. A closed channel means a graceful stop and is ignored.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

// purgeExpiredSessions sweeps expired session rows on a fixed interval.
func purgeExpiredSessions(ctx context.Context, authority *auth.SessionAuthority, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := authority.PurgeExpired(ctx); err != nil {
				errutil.LogError(slog.Default(), "session purge failed", err)
			}
		}
	}
}
