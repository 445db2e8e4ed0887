package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"worklink/internal/config"
	"worklink/internal/httpserver"
	"worklink/internal/security"
	mongostore "worklink/internal/store/mongo"
	"worklink/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := mongostore.Open(ctx, cfg.MongoURI)
	cancel()
	if err != nil {
		logger.Fatal("failed to open mongo", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB)
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	err = mongostore.EnsureIndexes(ctx, db)
	cancel()
	if err != nil {
		logger.Fatal("failed to ensure indexes", zap.Error(err))
	}

	tokens := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	hub := ws.NewHub(cfg.BroadcastWriteTimeout, logger)

	router := httpserver.NewRouter(cfg, db, hub, tokens, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.HTTPAddr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func buildLogger(envName string) (*zap.Logger, error) {
	if envName == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
