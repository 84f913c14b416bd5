package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/trendtruth/trendtruth/internal/api"
	"github.com/trendtruth/trendtruth/internal/metrics"
	"github.com/trendtruth/trendtruth/internal/notifications"
	"github.com/trendtruth/trendtruth/internal/scheduler"
)

var flagNoScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the cache-warming scheduler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagNoScheduler, "no-scheduler", false, "disable scheduled cache warming")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	logrus.Info("Starting TrendTruth")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	p := buildPipeline(cfg, recorder)

	var notifier notifications.NotificationInterface
	if cfg.NotificationsEnabled() {
		notifier = notifications.NewService(cfg)
	}
	schedulerService := scheduler.NewService(cfg, p.analysis, buildArchive(cmd.Context(), cfg), notifier)

	if !flagNoScheduler {
		if err := schedulerService.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer schedulerService.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.NewServer(p.analysis, schedulerService, metrics.Handler(registry), cfg.RefreshPerMinute).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-quit:
	}

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
	return nil
}
