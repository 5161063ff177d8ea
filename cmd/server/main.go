package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xtrntr/sharktank/internal/api"
	"github.com/xtrntr/sharktank/internal/auth"
	"github.com/xtrntr/sharktank/internal/circuitbreaker"
	"github.com/xtrntr/sharktank/internal/config"
	"github.com/xtrntr/sharktank/internal/desk"
	"github.com/xtrntr/sharktank/internal/events"
	"github.com/xtrntr/sharktank/internal/journal"
	"github.com/xtrntr/sharktank/internal/logging"
	"github.com/xtrntr/sharktank/internal/webhook"
)

// Main entry point: wires the webhook client, sessions, journal and HTTP server
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Remote transaction service
	breaker := circuitbreaker.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerReset, logger.Named("breaker"))
	client := webhook.NewClient(cfg.WebhookURL, cfg.WebhookTimeout, breaker, logger.Named("webhook"))

	// Sessions
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Fatal("jwt secret", zap.Error(err))
		}
		logger.Warn("JWT_SECRET not set; sessions will not survive a restart")
	}
	sessions, err := auth.NewSessionStore(secret, cfg.SessionTTL)
	if err != nil {
		logger.Fatal("sessions", zap.Error(err))
	}
	defer sessions.Close()
	authService := auth.NewAuthService(client, sessions, secret)

	// Journal and events
	j, err := journal.Open(ctx, cfg.JournalDriver, cfg.JournalDSN)
	if err != nil {
		logger.Fatal("journal", zap.Error(err))
	}
	defer j.Close(ctx)
	publisher := events.New(cfg.Brokers(), cfg.KafkaTopic, logger.Named("events"))
	defer publisher.Close()

	d := desk.NewDesk(client, j, publisher, logger.Named("desk"))

	handler, err := api.NewHandler(authService, d, logger)
	if err != nil {
		logger.Fatal("handler", zap.Error(err))
	}
	handler.CookieSecure = cfg.CookieSecure
	handler.StocksRefresh = cfg.StocksRefresh
	handler.Feed = api.NewStocksFeed(api.OriginChecker(cfg.CORSOrigin))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler, cfg.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening",
			zap.String("port", cfg.Port),
			zap.String("webhook", cfg.WebhookURL),
			zap.String("journal", cfg.JournalDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http", zap.Error(err))
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	handler.Feed.Close()
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = server.Shutdown(ctxShut)
	logger.Info("shutdown complete")
}
