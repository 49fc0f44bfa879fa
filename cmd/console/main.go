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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gocha/internal/api"
	"gocha/internal/config"
	"gocha/internal/engine"
	"gocha/internal/logger"
	"gocha/internal/monitoring"
	"gocha/internal/notify"
	"gocha/internal/remote"
)

var (
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Server.MetricsPort = *metricsPort
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	metrics := monitoring.NewMetrics()
	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.RemoteTimeout(), zlog)
	scheduler := notify.NewScheduler(notify.SystemClock{}, notify.LogSink{Log: zlog}, cfg.ToastTTL(), metrics, zlog)

	eng := engine.New(engine.Options{
		VenueID:       cfg.VenueID,
		PushURL:       cfg.Remote.PushURL,
		Query:         client,
		Command:       client,
		Scheduler:     scheduler,
		RetryInterval: cfg.RetryInterval(),
		Metrics:       metrics,
		Log:           zlog,
	})
	if err := eng.Start(); err != nil {
		zlog.Fatal("failed to start engine", zap.Error(err))
	}

	go startMetricsServer(cfg.Server.MetricsPort, metrics, zlog)

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewServer(eng, zlog).Router(),
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		zlog.Info("shutting down")
		eng.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Warn("API server shutdown error", zap.Error(err))
		}
	}()

	zlog.Info("starting console API",
		zap.String("venue", cfg.VenueID),
		zap.Int("port", cfg.Server.Port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		zlog.Fatal("API server error", zap.Error(err))
	}
}

func startMetricsServer(port int, metrics *monitoring.Metrics, zlog *zap.Logger) {
	router := gin.New()
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	zlog.Info("starting metrics server", zap.Int("port", port))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		zlog.Warn("metrics server error", zap.Error(err))
	}
}
