package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/YuriFontella/strawberry-auth/internal/audit"
	auditrepo "github.com/YuriFontella/strawberry-auth/internal/audit/repository"
	"github.com/YuriFontella/strawberry-auth/internal/auth"
	"github.com/YuriFontella/strawberry-auth/internal/config"
	"github.com/YuriFontella/strawberry-auth/internal/db"
	"github.com/YuriFontella/strawberry-auth/internal/db/migrate"
	"github.com/YuriFontella/strawberry-auth/internal/obs"
	"github.com/YuriFontella/strawberry-auth/internal/security"
	"github.com/YuriFontella/strawberry-auth/internal/server"
	sessionrepo "github.com/YuriFontella/strawberry-auth/internal/session/repository"
	userrepo "github.com/YuriFontella/strawberry-auth/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := obs.NewLogger(obs.LogConfig{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		App:    "strawberry-auth",
		Env:    cfg.Env,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	obs.RegisterMetrics(prometheus.DefaultRegisterer)

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}

	tokens, err := security.NewTokenService(cfg.JWTSecretKey, cfg.TokenSalt, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		logger.Fatal("token service", zap.Error(err))
	}

	users := userrepo.NewPostgresRepository(pool)
	sessions := sessionrepo.NewPostgresRepository(pool)
	auditRepo := auditrepo.NewPostgresRepository(pool)
	events := audit.NewLogger(auditRepo, logger)

	svc := auth.NewService(users, sessions, security.NewHasher(cfg.BcryptCost), tokens, events, logger)
	gate := auth.NewGate(tokens, sessions, svc, logger)

	router := server.NewRouter(server.Deps{
		Auth:   svc,
		Gate:   gate,
		Events: auditRepo,
		Health: pool.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("http server stopped")
}
