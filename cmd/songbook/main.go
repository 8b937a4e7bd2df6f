package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/liav/songbook/pkg/collectors"
	"github.com/liav/songbook/pkg/config"
	"github.com/liav/songbook/pkg/domain"
	"github.com/liav/songbook/pkg/integrations"
	"github.com/liav/songbook/pkg/interfaces"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Info().Str("backend", cfg.Cache.Backend).Msg("starting songbook")

	store, cleanup, err := newCacheStore(cfg.Cache, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize cache store")
	}
	defer cleanup()

	client, err := integrations.NewGeniusClient(integrations.GeniusConfig{
		AccessToken: cfg.Genius.AccessToken,
		BaseURL:     cfg.Genius.BaseURL,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create genius client")
	}

	resolver, err := integrations.NewResolver(client)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create resolver")
	}

	cache, err := collectors.NewResultCache(store, cfg.Cache.MappingTTL, cfg.Cache.PageTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create result cache")
	}

	service, err := interfaces.NewSongLookupService(resolver, client, cache, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create lookup service")
	}

	handler := interfaces.NewLookupHandler(service, logger)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

func newCacheStore(cfg config.CacheConfig, logger zerolog.Logger) (domain.CacheStore, func(), error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			// A down cache degrades lookups to always-miss; the server
			// still comes up.
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at startup")
		}

		store, err := collectors.NewRedisStore(client)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil

	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := collectors.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	default:
		store := collectors.NewMemoryStore(5 * time.Minute)
		return store, store.Close, nil
	}
}
