// Command authserver starts the session lifecycle HTTP service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/avolkov-dev/authguard/internal/config"
	"github.com/avolkov-dev/authguard/internal/limiter"
	"github.com/avolkov-dev/authguard/internal/migrate"
	"github.com/avolkov-dev/authguard/internal/obs"
	"github.com/avolkov-dev/authguard/internal/repository/postgres"
	httpserver "github.com/avolkov-dev/authguard/internal/server/http"
	"github.com/avolkov-dev/authguard/internal/service"
	"github.com/avolkov-dev/authguard/internal/session"
	"github.com/avolkov-dev/authguard/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the HTTP server.
func main() {
	// .env is optional, the environment itself wins
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Revocation cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}

	// Repositories
	db := &postgres.DB{Pool: pool}
	userRepo := postgres.NewUserRepo(db)
	roleRepo := postgres.NewRoleRepo(db)
	historyRepo := postgres.NewHistoryRepo(db)

	lim := limiter.NewPG(pool, 15*time.Minute, 5, 15*time.Minute)

	issuer, err := token.NewIssuer([]byte(cfg.SigningKey), cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}
	cache := session.NewStore(rdb)

	// Services
	authSvc := service.NewAuthService(userRepo, roleRepo, historyRepo, cache, issuer, lim, logger, cfg.RecordFailedLogins)
	accountSvc := service.NewAccountService(userRepo, roleRepo, historyRepo, logger)
	adminSvc := service.NewAdminService(userRepo, roleRepo, logger)

	obs.Init()
	srv := httpserver.New(cfg, authSvc, accountSvc, adminSvc, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
