package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"godispatch/internal/config"
	"godispatch/internal/events"
	"godispatch/internal/handlers"
	"godispatch/internal/repositories/mongodb"
	"godispatch/internal/services"
	"godispatch/internal/tracker"
	"godispatch/internal/workers"
	"godispatch/pkg/cache"
	"godispatch/pkg/database"
	"godispatch/pkg/logger"
	"godispatch/pkg/maps"
	"godispatch/pkg/websocket"
	"godispatch/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
		Colors: !config.IsProduction(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to mongodb")
	}
	defer db.Close()

	if err := db.EnsureIndexes(); err != nil {
		log.WithError(err).Fatal("failed to ensure indexes")
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisCache.Close()

	// Repositories
	courierRepo := mongodb.NewCourierRepository(db.Database)
	deliveryRepo := mongodb.NewDeliveryRepository(db.Database)
	areaRepo := mongodb.NewServiceAreaRepository(db.Database)

	// Location tracker
	var locTracker tracker.LocationTracker
	if cfg.Tracker.Backend == "redis" {
		locTracker = tracker.NewRedisTracker(redisCache, cfg.Tracker.StalenessThreshold)
	} else {
		locTracker = tracker.NewMemoryTracker(cfg.Tracker.StalenessThreshold)
	}

	// Events: log everything, fan out over redis pub/sub
	publisher := events.NewLogPublisher(events.NewRedisPublisher(redisCache, log), log)

	// Route optimizer
	var optimizer maps.RouteOptimizer
	if cfg.Maps.Provider == "google" && cfg.Maps.APIKey != "" {
		optimizer, err = maps.NewGoogleRouteOptimizer(cfg.Maps.APIKey)
		if err != nil {
			log.WithError(err).Fatal("failed to init route optimizer")
		}
	} else {
		optimizer = maps.NewDirectLineEstimator(0)
	}

	// Websocket hub
	hub := websocket.NewHub(log)
	go hub.Run()

	// Services
	areaService := services.NewServiceAreaService(areaRepo, publisher, log)
	assignment := services.NewAssignmentService(courierRepo, locTracker, cfg.Dispatch, log)
	dispatchService := services.NewDispatchService(deliveryRepo, courierRepo, areaService, assignment, optimizer, cfg.Dispatch, publisher, log)
	courierService := services.NewCourierService(courierRepo, locTracker, publisher, log)
	trackingService := services.NewTrackingService(locTracker, deliveryRepo, publisher, hub, log)

	// Background maintenance
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	sweeper := workers.NewSweeper(locTracker, deliveryRepo, dispatchService, cfg.Tracker, cfg.Dispatch, log)
	go sweeper.Run(workerCtx)

	// HTTP surface
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	routes.Setup(engine, &routes.Handlers{
		Delivery:    handlers.NewDeliveryHandler(dispatchService),
		Courier:     handlers.NewCourierHandler(courierService, trackingService),
		ServiceArea: handlers.NewServiceAreaHandler(areaService),
		WS:          handlers.NewWSHandler(hub),
	}, log)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: engine,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	log.Info("server stopped")
}
