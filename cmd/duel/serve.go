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

	"github.com/spf13/cobra"

	"github.com/use-agent/duel/api"
	"github.com/use-agent/duel/api/handler"
	"github.com/use-agent/duel/cache"
	"github.com/use-agent/duel/config"
	"github.com/use-agent/duel/engine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP race API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── 1. Configuration and logging ────────────────────────────────
	cfg := config.Load()
	initLogger(cfg.Log, os.Stdout)
	slog.Info("duel starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"browser", cfg.Browser.Enabled,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 2. Strategies (launches the browser) ────────────────────────
	a, err := newApp(cfg)
	if err != nil {
		return fmt.Errorf("initialise strategies: %w", err)
	}
	defer a.Close()

	// ── 3. Race bookkeeping ─────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	defer cc.Stop()
	winners := engine.NewWinnerMemory(cfg.Race.WinnerTTL)
	defer winners.Stop()
	reports := handler.NewReportStore(cfg.Race.ReportTTL)
	defer reports.Stop()

	rc := &handler.Racer{
		Registry:     a.registry,
		Orchestrator: a.orchestrator,
		Cache:        cc,
		Winners:      winners,
		Reports:      reports,
	}

	// ── 4. Router ───────────────────────────────────────────────────
	var pool handler.PoolStatser
	if a.scraper != nil {
		pool = a.scraper
	}
	router := api.NewRouter(rc, pool, cfg, time.Now())

	// ── 5. HTTP server ──────────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Races have no overall deadline, so give in-flight ones a while.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("duel stopped")
	return nil
}
