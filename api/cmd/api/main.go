package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/app/migrate"
	httpx "github.com/KhushalAcharya29/real-estate-app/api/internal/http"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/repository/postgres"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/auth"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/interest"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/property"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/ws"
	"github.com/KhushalAcharya29/real-estate-app/pkg/config"
	jwtpkg "github.com/KhushalAcharya29/real-estate-app/pkg/jwt"
	"github.com/KhushalAcharya29/real-estate-app/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	issuer, err := jwtpkg.NewIssuer(jwtpkg.IssuerConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		log.Error("failed to configure token issuer", "error", err)
		os.Exit(1)
	}

	health := []httpx.HealthCheck{{Name: "database", Check: pool.Ping}}

	var redisClient *redis.Client
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable at startup", "addr", addr, "error", err)
		}
		cancel()
		health = append(health, httpx.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	var denylist auth.Denylist
	switch {
	case !cfg.TokenRevocation:
		log.Warn("token revocation disabled; logout only clears cookies")
	case redisClient != nil:
		denylist = auth.NewRedisDenylist(redisClient, "estate:denylist:")
	default:
		denylist = auth.NewMemoryDenylist()
	}

	limiter := httpx.NewRateLimiter(redisClient, log)

	repo := postgres.New(pool)
	feed := ws.NewHub()
	defer feed.Close()

	router := httpx.NewRouter(httpx.Dependencies{
		Logger:     log,
		Auth:       auth.New(repo, issuer, denylist, log),
		Properties: property.New(repo, log),
		Interests:  interest.New(repo, repo, feed, log),
		Feed:       feed,
		Limiter:    limiter,
		Cookies: httpx.CookieConfig{
			Secure:     cfg.SecureCookies(),
			SameSite:   cfg.SameSiteMode(),
			Domain:     cfg.CookieDomain,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		},
		CORSOrigins:  cfg.CORSOrigins,
		RateLimit:    cfg.RateLimitPerMinute,
		MaxBodyBytes: cfg.MaxBodyBytes,
		HSTS:         cfg.Production(),
		Health:       health,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
