package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/kaizen-energy/kaizend/internal/config"
	"github.com/kaizen-energy/kaizend/internal/database"
	"github.com/kaizen-energy/kaizend/internal/poller"
	"github.com/kaizen-energy/kaizend/internal/scheduler"
	"github.com/kaizen-energy/kaizend/internal/sensors"
	"github.com/kaizen-energy/kaizend/internal/tridens"
	"github.com/kaizen-energy/kaizend/internal/web"
)

// Command kaizend polls the Tridens Monetization API for Kaizen Energy
// daily usage events and maintains two historical sensor series:
// energy consumption (kWh) and cost (EUR).
//
// The service supports:
//   - Daily polling with configurable cron schedule
//   - Historical data bootstrapping on startup
//   - TimescaleDB-backed statistics storage
//   - HTTP read API with Prometheus metrics
//
// Usage:
//
//	kaizend [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	appConfig, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger
	logger := logrus.New()
	if appConfig.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(appConfig.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	logger.WithFields(logrus.Fields{
		"port": appConfig.Server.Port,
	}).Info("Starting kaizend")

	// Construct connection string from config
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		appConfig.Database.Host,
		appConfig.Database.Port,
		appConfig.Database.User,
		appConfig.Database.Password,
		appConfig.Database.Name,
		appConfig.Database.SSLMode,
	)

	store, err := database.NewPostgresStore(connStr)
	if err != nil {
		logger.Fatalf("Failed to open history store: %v", err)
	}

	// Create a context that will be canceled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize components
	client := tridens.NewClient(tridens.Config{
		BaseURL:     appConfig.Tridens.BaseURL,
		SiteCode:    appConfig.Tridens.SiteCode,
		Username:    appConfig.Tridens.Username,
		Password:    appConfig.Tridens.Password,
		ServiceType: appConfig.Tridens.ServiceType,
	}, logger)

	energy := sensors.NewAdapter(sensors.EnergySensor(), store, logger)
	cost := sensors.NewAdapter(sensors.CostSensor(), store, logger)

	metrics := poller.NewMetrics()
	if err := registerPollerMetrics(metrics); err != nil {
		logger.Fatalf("Failed to register metrics: %v", err)
	}

	window := time.Duration(appConfig.Tridens.WindowDays) * 24 * time.Hour
	p := poller.New(client, energy, cost, window, logger, metrics)
	sched := scheduler.NewScheduler(ctx, p, appConfig.Schedule.Cron, logger)

	// Create and setup the HTTP server
	serverConfig := web.ServerConfig{
		CacheSize:      appConfig.Server.CacheSize,
		RateLimit:      appConfig.Server.RateLimit,
		RateLimitBurst: appConfig.Server.RateLimitBurst,
	}
	handler, err := web.SetupServer(store, []sensors.Sensor{energy.Sensor(), cost.Sensor()}, serverConfig, logger)
	if err != nil {
		logger.Fatalf("Failed to setup server: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port),
		Handler: handler,
	}

	// Start background services
	errChan := make(chan error, 1)

	// Bootstrap historical data in a goroutine
	go func() {
		backfill := time.Duration(appConfig.Tridens.BackfillDays) * 24 * time.Hour
		if err := p.Bootstrap(ctx, backfill); err != nil {
			logger.WithError(err).Error("Bootstrap failed, waiting for next scheduled cycle")
		}
	}()

	// Start scheduler
	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	// Handle shutdown gracefully
	go handleShutdown(ctx, srv, sched, logger, store)

	logger.WithFields(logrus.Fields{
		"addr": srv.Addr,
	}).Info("Starting HTTP server")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for any error
	if err := <-errChan; err != nil {
		logger.Fatalf("Service error: %v", err)
	}
}

func registerPollerMetrics(m *poller.Metrics) error {
	return prometheus.Register(m.Cycles)
}

// Handle graceful shutdown
func handleShutdown(ctx context.Context, srv *http.Server, sched *scheduler.Scheduler, logger *logrus.Logger, store database.StatisticsStore) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logger.Println("Context canceled, initiating shutdown")
	case sig := <-sigChan:
		logger.Printf("Received signal %v, initiating shutdown", sig)
	}

	// Perform graceful shutdown
	logger.Println("Gracefully stopping server...")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	logger.Println("Server stopped")

	// Clean up the history store
	store.Close()
	os.Exit(0)
}
