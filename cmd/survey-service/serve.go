package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/handlers"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/survey"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.openDatabase(); err != nil {
		return err
	}
	if err := a.openLocalCache(); err != nil {
		return err
	}
	a.openPublisher()

	if a.cfg.WatchSurveys {
		watcher, err := survey.NewWatcher(a.loader, a.store, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create survey watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to watch %s: %w", a.cfg.SurveyDir, err)
		}
		defer watcher.Stop()
	}

	sessions := services.NewSessionManager(
		a.repo,
		a.store,
		cache.NewProgressCache(a.local, a.cfg.ProgressCacheTTL),
		a.notifier(),
		a.logger,
		services.SessionConfig{
			AutosaveInterval: a.cfg.AutosaveInterval,
			IdleTimeout:      a.cfg.IdleTimeout,
		},
	)
	// sessions flush through the cache and publisher, so they stop first
	defer sessions.Shutdown()

	manager := services.NewServiceManager(
		sessions,
		services.NewSurveyService(a.repo, a.store, a.logger),
		services.NewMappingService(a.store, a.logger),
		a.importExportService(),
	)

	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(a.logger))
	router.Use(utils.ContextLogger(a.logger))
	handlers.NewHandlerManager(manager, a.validator, a.logger).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", srv.Addr, "surveys", len(a.store.Types()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down", "active_sessions", sessions.ActiveSessions())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
