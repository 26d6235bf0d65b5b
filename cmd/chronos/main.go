package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ryanbastic/go-chronos/internal/api"
	"github.com/ryanbastic/go-chronos/internal/auth"
	"github.com/ryanbastic/go-chronos/internal/config"
	"github.com/ryanbastic/go-chronos/internal/media"
	"github.com/ryanbastic/go-chronos/internal/metrics"
	"github.com/ryanbastic/go-chronos/internal/storage"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if err := storage.RunMigrations(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete")

	prometheus.MustRegister(metrics.NewPoolCollector(pool))
	store := storage.NewPostgresStore(pool, cfg.QueryTimeout)

	backends := []api.Backend{{Name: "postgres", Pinger: pool}}

	var revocations auth.RevocationStore = auth.NewMemoryRevocations()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		redisRevocations := auth.NewRedisRevocations(rdb)
		revocations = redisRevocations
		backends = append(backends, api.Backend{Name: "redis", Pinger: redisRevocations})
		logger.Info("session revocations in redis", "addr", cfg.RedisAddr)
	} else {
		logger.Warn("REDIS_ADDR not set, session revocations are kept in memory")
	}

	var avatars media.AvatarStore
	if cfg.CloudinaryURL != "" {
		cld, err := media.NewCloudinaryStore(cfg.CloudinaryURL, "chronos/avatars")
		if err != nil {
			logger.Error("failed to configure cloudinary", "error", err)
			os.Exit(1)
		}
		avatars = cld
		backends = append(backends, api.Backend{Name: "cloudinary", Pinger: cld, Optional: true})
	}

	var identity auth.IdentityVerifier
	if cfg.GoogleClientID != "" {
		identity = auth.NewGoogleVerifier(cfg.GoogleClientID, "", &http.Client{Timeout: 10 * time.Second})
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set, sign-in is disabled")
	}

	// Start HTTP server
	handler := api.NewServer(api.Deps{
		Logger:         logger,
		Store:          store,
		Sessions:       auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL),
		Identity:       identity,
		Revocations:    revocations,
		Avatars:        avatars,
		Backends:       backends,
		CookieSecure:   cfg.CookieSecure,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
