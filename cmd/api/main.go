package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"schoolportal/internal/api"
	"schoolportal/internal/config"
	"schoolportal/internal/kv"
	"schoolportal/internal/logger"
	"schoolportal/internal/notify"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	zl, err := logger.New(logger.Options{
		Env:          cfg.Env,
		Level:        cfg.LogLevel,
		Debug:        cfg.Debug(),
		RollbarToken: cfg.RollbarToken,
		Service:      "portal-api",
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Close(zl)

	if err := runHTTP(cfg, zl); err != nil {
		zl.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, zl *zap.Logger) error {
	ctx := context.Background()

	store, err := kv.Open(ctx, kv.Options{
		Backend:       cfg.Store.Backend,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPrefix:   cfg.Store.RedisPrefix,
		DatabaseURL:   cfg.Store.DatabaseURL,
		SQLitePath:    cfg.Store.SQLitePath,
		MongoURI:      cfg.Store.MongoURI,
		MongoDatabase: cfg.Store.MongoDatabase,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	var bus notify.Bus
	if cfg.BusBackend == "redis" {
		client := kv.NewRedisClient(cfg.Store.RedisAddr)
		defer client.Close()
		bus = notify.NewRedisBus(client, "portal:changes")
	} else {
		bus = notify.NewInMemory(64)
	}
	origin := uuid.NewString()
	shared := notify.Wrap(kv.Instrument(store), bus, origin)

	zl.Info("store ready",
		zap.String("backend", cfg.Store.Backend),
		zap.String("bus", cfg.BusBackend),
		zap.String("origin", origin))

	h := api.New(cfg, shared, bus, zl)

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		zl.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("server forced shutdown", zap.Error(err))
	}

	zl.Info("server exited")
	return nil
}
