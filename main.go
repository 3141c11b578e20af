package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alexbotov/spw/internal/api"
	"github.com/alexbotov/spw/internal/audit"
	"github.com/alexbotov/spw/internal/auth"
	"github.com/alexbotov/spw/internal/config"
	"github.com/alexbotov/spw/internal/database"
	"github.com/alexbotov/spw/internal/feed"
	"github.com/alexbotov/spw/internal/metrics"
	"github.com/alexbotov/spw/pkg/skin"
	"github.com/alexbotov/spw/pkg/spworlds"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a live feed token for the given subscriber and exit")
	webhookURL := flag.String("webhook-url", "", "point the card's transaction webhook at this URL on startup")
	flag.Parse()

	cfg := config.Load()

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	authSvc := auth.New(&cfg.Auth)

	if *issueToken != "" {
		token, expiresAt, err := authSvc.IssueToken(*issueToken)
		if err != nil {
			logger.Fatal("Failed to issue token", zap.Error(err))
		}
		fmt.Println(token)
		logger.Info("Token issued", zap.String("subject", *issueToken), zap.Time("expires_at", expiresAt))
		return
	}

	if cfg.SPWorlds.CardID == "" || cfg.SPWorlds.Token == "" {
		logger.Fatal("SPW_CARD_ID and SPW_CARD_TOKEN are required")
	}

	client := spworlds.NewClient(cfg.SPWorlds.ClientConfig(logger))

	if *webhookURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.SPWorlds.Timeout)
		hook, err := client.SetWebhook(ctx, webhookURL)
		cancel()
		if err != nil {
			logger.Fatal("Failed to set card webhook", zap.Error(err))
		}
		logger.Info("Card webhook set", zap.String("card_id", hook.ID), zap.Stringp("webhook", hook.Webhook))
	}

	auditSvc := audit.New(nil)
	if cfg.Database.Enabled() {
		db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		auditSvc = audit.New(db.DB)
	} else {
		logger.Warn("SPW_DB_DSN is empty, audit log disabled")
	}

	m := metrics.New()
	hub := feed.NewHub(logger, m)
	skins := skin.NewResolver(client, skin.NewMojangDirectory(nil), skin.NewRenderer(nil))

	handler := api.New(client, cfg.SPWorlds.RequestDelay, skins, auditSvc, authSvc, hub, m, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.SetupRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("spw-hook starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return zcfg.Build()
}
