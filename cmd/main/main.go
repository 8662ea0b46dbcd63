package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"crypto-analytics/src/aggregator"
	"crypto-analytics/src/anomaly"
	"crypto-analytics/src/cache"
	"crypto-analytics/src/config"
	"crypto-analytics/src/control"
	"crypto-analytics/src/feed"
	"crypto-analytics/src/instrumentation"
	"crypto-analytics/src/interfaces"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"
	"crypto-analytics/src/sentiment"
	"crypto-analytics/src/server"
	"crypto-analytics/src/storage"

	"github.com/prometheus/client_golang/prometheus"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.LogLevel, config.Name)

	// 2. Storage backend
	var db interfaces.IStorage

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewSQLiteDB(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}

	// 3. Latest-tick cache
	var tickCache interfaces.ICache
	if config.Redis.Enabled {
		tickCache, err = cache.NewRedisCache(config.MConfig, appLogger)
		if err != nil {
			appLogger.Critical("Failed to connect to redis: %v", err)
		}
	} else {
		tickCache = cache.NewMemoryCache()
	}

	// 4. Metrics on the default registry, scraped through /metrics
	metrics := instrumentation.NewMetrics(prometheus.DefaultRegisterer)

	// 5. Processing components
	symbols := config.TrackedSymbols()

	hub := server.NewHub(symbols, appLogger, metrics)
	agg := aggregator.NewAggregator(config.Aggregator, sentiment.Score, db, appLogger, metrics)
	detector := anomaly.NewDetector(config.Anomaly, db, appLogger, metrics)
	recorder := storage.NewRecorder(config.MConfig, db, tickCache, appLogger)

	var source interfaces.IFeedSource = feed.NewBinanceSource(config.Feed, appLogger, metrics)

	// 6. Fan-out: one queue per consumer, a slow consumer drops its oldest
	dispatcher := feed.NewDispatcher(config.Dispatcher.QueueSize, appLogger, metrics)
	hubEvents := dispatcher.Register("hub")
	aggEvents := dispatcher.Register("aggregator")
	anomalyEvents := dispatcher.Register("anomaly")
	recorderEvents := dispatcher.Register("recorder")

	// 7. HTTP surface
	srv := server.NewServer(config.MConfig, hub, tickCache, source.Healthy, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 8. Start the pipeline
	feedEvents := make(chan models.MMarketEvent, config.Dispatcher.QueueSize)

	var feedWg sync.WaitGroup
	if err := source.Start(ctx, feedEvents, &feedWg); err != nil {
		appLogger.Critical("Failed to start feed: %v", err)
	}

	var consumersWg sync.WaitGroup
	consumersWg.Add(4)
	go func() {
		defer consumersWg.Done()
		hub.Run(hubEvents)
	}()
	go func() {
		defer consumersWg.Done()
		agg.Run(ctx, aggEvents)
	}()
	go func() {
		defer consumersWg.Done()
		detector.Run(anomalyEvents)
	}()
	go func() {
		defer consumersWg.Done()
		recorder.Run(ctx, recorderEvents)
	}()

	var dispatcherWg sync.WaitGroup
	dispatcherWg.Add(1)
	go func() {
		defer dispatcherWg.Done()
		dispatcher.Run(ctx, feedEvents)
	}()

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 9. gRPC health endpoint (optional)
	var healthSrv *control.HealthServer
	if config.ControlPort != 0 {
		healthSrv = control.NewHealthServer(config.MConfig, appLogger)
		go func() {
			if err := healthSrv.Start(); err != nil {
				appLogger.Error("Control endpoint failed: %v", err)
			}
		}()
		go healthSrv.Watch(ctx, source.Healthy)
	}

	appLogger.Info("%s started, tracking %d symbols", config.Name, len(symbols))

	// 10. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	// Stop the feed first so the pipeline drains in order: the source closes
	// its output, the dispatcher closes the consumer queues, consumers flush.
	cancel()
	source.Stop()
	feedWg.Wait()
	dispatcherWg.Wait()
	consumersWg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown error: %v", err)
	}
	if healthSrv != nil {
		healthSrv.Stop()
	}

	if err := tickCache.Close(); err != nil {
		appLogger.Error("Cache close error: %v", err)
	}
	if err := db.Close(); err != nil {
		appLogger.Error("Storage close error: %v", err)
	}

	appLogger.Info("Shutdown complete")
}
