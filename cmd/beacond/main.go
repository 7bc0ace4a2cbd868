package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/pkg/api"
	"github.com/beaconhq/beacon/pkg/api/handlers"
	"github.com/beaconhq/beacon/pkg/config"
	"github.com/beaconhq/beacon/pkg/hub"
	"github.com/beaconhq/beacon/pkg/logger"
	"github.com/beaconhq/beacon/pkg/metrics"
	"github.com/beaconhq/beacon/pkg/ratelimit"
	"github.com/beaconhq/beacon/pkg/storage"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file (TOML, optional)")
	seedPath := flag.String("seed", "", "Path to an entity seed file (YAML, optional)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger with config
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Beacon",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("config_file", *configPath),
		zap.String("storage_type", cfg.Storage.Type),
		zap.String("hub_backend", cfg.Hub.Backend),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
	)

	// Register metrics collectors before anything records to them
	metrics.SetEnabled(cfg.Metrics.Enabled)
	metrics.Init()
	metrics.Info.WithLabelValues(Version, cfg.Storage.Type, cfg.Hub.Backend).Set(1)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(&cfg.Metrics, log)
		if err := metricsServer.Start(); err != nil {
			log.Fatal("Failed to start metrics server", zap.Error(err))
		}
	}

	// Initialize storage based on type
	var store storage.StatusStore
	switch cfg.Storage.Type {
	case "sqlite":
		log.Info("Initializing SQLite storage", zap.String("path", cfg.Storage.SQLite.Path))
		store, err = storage.NewSQLiteStorage(cfg.Storage.SQLite.Path, cfg.Storage.HistoryLimit, log)
		if err != nil {
			log.Fatal("Failed to initialize SQLite storage", zap.Error(err))
		}
	case "postgres":
		log.Info("Initializing PostgreSQL storage",
			zap.String("host", cfg.Storage.Postgres.Host),
			zap.String("database", cfg.Storage.Postgres.Database))
		store, err = storage.NewPostgresStorage(cfg.Storage.Postgres.DSN(), cfg.Storage.Postgres.MaxConns, cfg.Storage.HistoryLimit, log)
		if err != nil {
			log.Fatal("Failed to initialize PostgreSQL storage", zap.Error(err))
		}
	case "memory":
		log.Info("Running with in-memory storage (no persistence)")
		store = storage.NewMemoryStore(cfg.Storage.HistoryLimit)
	default:
		log.Fatal("Unknown storage type", zap.String("type", cfg.Storage.Type))
	}
	store = storage.NewInstrumentedStore(store, cfg.Storage.Type)
	defer store.Close()

	// One Redis client is shared by the hub and the rate limiter
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancelPing()
		if err != nil {
			log.Fatal("Failed to connect to Redis",
				zap.String("address", cfg.Redis.Address),
				zap.Error(err))
		}
		defer client.Close()
		redisClient = client
		log.Info("Connected to Redis", zap.String("address", cfg.Redis.Address))
	}

	// Initialize event hub
	eventHub, err := hub.New(hub.Options{
		Backend:           cfg.Hub.Backend,
		BufferSize:        cfg.Hub.BufferSize,
		HeartbeatInterval: cfg.Hub.HeartbeatInterval,
		RedisClient:       redisClient,
		Logger:            log,
	})
	if err != nil {
		log.Fatal("Failed to initialize event hub", zap.Error(err))
	}

	// Seed entities on startup when a manifest is provided
	if *seedPath != "" {
		if err := seedEntities(context.Background(), *seedPath, store, eventHub, log); err != nil {
			log.Fatal("Failed to seed entities", zap.String("path", *seedPath), zap.Error(err))
		}
	}

	// Initialize rate limiter
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(ratelimit.Config{
			Backend:         cfg.RateLimit.Backend,
			Limit:           int64(cfg.RateLimit.Limit),
			Window:          cfg.RateLimit.Window,
			KeyPrefix:       "beacon:ratelimit:",
			RedisClient:     redisClient,
			CleanupInterval: time.Minute,
		})
		if err != nil {
			log.Fatal("Failed to initialize rate limiter", zap.Error(err))
		}
		log.Info("Rate limiting enabled",
			zap.String("backend", cfg.RateLimit.Backend),
			zap.Int("limit", cfg.RateLimit.Limit),
			zap.Duration("window", cfg.RateLimit.Window))
	}

	// Initialize Gin router
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	apiServer := handlers.NewServer(store, eventHub, cfg, log)
	router := api.NewRouter(apiServer, limiter, cfg.RateLimit.Backend, log)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.APIPort),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	log.Info("Starting REST API server", zap.Int("port", cfg.Server.APIPort))

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start REST API server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Beacon")

	// Graceful shutdown with timeout. The hub closes first so open streams
	// see their channels close and return, letting the server drain.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := eventHub.Close(); err != nil {
		log.Error("Failed to close event hub", zap.Error(err))
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if limiter != nil {
		if err := limiter.Close(); err != nil {
			log.Error("Failed to close rate limiter", zap.Error(err))
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(ctx); err != nil {
			log.Error("Failed to stop metrics server", zap.Error(err))
		}
	}

	log.Info("Beacon stopped")
}
