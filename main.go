package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/tally/cliparse"
	"github.com/danielhkuo/tally/db"
	"github.com/danielhkuo/tally/engine"
	"github.com/danielhkuo/tally/middleware"
	"github.com/danielhkuo/tally/results"
	"github.com/danielhkuo/tally/router"
	"github.com/danielhkuo/tally/store"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	if os.Getenv("LOG_FORMAT") == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	st := store.New(dbConn, cfg.DatabaseType, slog.Default())

	mode, err := results.ParseMode(cfg.ResultsMode)
	if err != nil {
		slog.Error("invalid results mode", "error", err)
		os.Exit(1)
	}

	var cache results.Cache
	if mode == results.ModeBounded && cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := results.NewRedisCache(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		cache = rc
		slog.Info("Using shared results cache")
	}

	svc := results.NewService(st, cache, results.Config{
		Mode:         mode,
		Threshold:    cfg.CacheThreshold,
		MaxStaleness: cfg.CacheMaxStaleness,
	}, slog.Default())

	eng := engine.New(st, svc, slog.Default())
	mux := router.NewRouter(eng, cfg)

	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	slog.Info("Listening", "port", cfg.Port, "results_mode", mode)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
