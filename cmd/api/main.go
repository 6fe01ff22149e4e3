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

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/reconciler/internal/config"
	"github.com/MrJamesThe3rd/reconciler/internal/database"
	"github.com/MrJamesThe3rd/reconciler/internal/export"
	reconHttp "github.com/MrJamesThe3rd/reconciler/internal/http"
	discrepancyHandler "github.com/MrJamesThe3rd/reconciler/internal/http/discrepancy"
	ingestHandler "github.com/MrJamesThe3rd/reconciler/internal/http/ingest"
	matchHandler "github.com/MrJamesThe3rd/reconciler/internal/http/match"
	reconcileHandler "github.com/MrJamesThe3rd/reconciler/internal/http/reconcile"
	"github.com/MrJamesThe3rd/reconciler/internal/importer"
	"github.com/MrJamesThe3rd/reconciler/internal/ingest"
	ingestStore "github.com/MrJamesThe3rd/reconciler/internal/ingest/store"
	"github.com/MrJamesThe3rd/reconciler/internal/logging"
	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
	reconStore "github.com/MrJamesThe3rd/reconciler/internal/reconciliation/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	engine, err := matching.NewEngine(policy)
	if err != nil {
		return fmt.Errorf("failed to build matching engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.ConnectionString(), database.PoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var (
		reconciliationService = reconciliation.NewService(reconStore.New(db), engine,
			reconciliation.WithRetry(cfg.Retry()),
			reconciliation.WithOrphanThreshold(cfg.OrphanThreshold()),
		)
		ingestService = ingest.NewService(ingestStore.New(db))
		importService = importer.NewService()
		exportService = export.NewService(reconciliationService)
	)

	if err := reconciliationService.Recover(ctx); err != nil {
		return err
	}

	var (
		reconcileH   = reconcileHandler.NewHandler(reconciliationService)
		discrepancyH = discrepancyHandler.NewHandler(reconciliationService, exportService)
		matchH       = matchHandler.NewHandler(reconciliationService)
		ingestH      = ingestHandler.NewHandler(importService, ingestService)
	)

	router := reconHttp.New(reconHttp.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		JWTSecret:      cfg.Server.JWTSecret,
	}, reconcileH, discrepancyH, matchH, ingestH)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "port", srv.Addr)

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

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}

	return reconciliationService.Shutdown(shutdownCtx)
}
