package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vibestack/internal/api"
	"vibestack/internal/bucket"
	"vibestack/internal/config"
	"vibestack/internal/items"
	"vibestack/internal/llm"
	"vibestack/internal/redis"
	"vibestack/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("VIBE_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := newLogger(cfg.BasicConfig.LogLevel)

	dbType := cfg.Database
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create the items table
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("create redis client: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	ctx := context.Background()
	objects, err := bucket.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("open object storage: %v", err)
	}
	if objects == nil {
		log.Printf("object storage disabled, upload routes will report it")
	}

	completer, err := llm.New(ctx, cfg.AI, logger)
	if err != nil {
		log.Fatalf("init ai provider: %v", err)
	}

	handlers := api.NewHandler(api.Options{
		Items:  items.NewService(db, items.NewRedisCache(rdb, cfg.Redis.CacheTTL(), logger)),
		Bucket: objects,
		LLM:    completer,
		Config: cfg,
		Logger: logger,
	})

	if cfg.BasicConfig.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.BasicConfig.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server starting on %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	case sig := <-shutdown:
		log.Printf("start shutdown, signal: %v", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
			if err := srv.Close(); err != nil {
				log.Printf("forcing server close: %v", err)
			}
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
