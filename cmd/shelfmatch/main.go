package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"shelfmatch/internal/app"
	"shelfmatch/internal/config"
	"shelfmatch/internal/server"
	"shelfmatch/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		DatabaseURL:        cfg.DatabaseURL,
		MinioEndpoint:      cfg.MinioEndpoint,
		MinioAccessKey:     cfg.MinioAccessKey,
		MinioSecretKey:     cfg.MinioSecretKey,
		MinioBucket:        cfg.MinioBucket,
		MinioUseSSL:        cfg.MinioUseSSL,
		CatalogPath:        cfg.CatalogPath,
		CatalogLoadTimeout: time.Duration(cfg.CatalogLoadSeconds) * time.Second,
		AdminPasscode:      cfg.AdminPasscode,
		LocalMinReviews:    cfg.LocalMinReviews,
		MaxCoverBytes:      cfg.MaxCoverBytes,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                appCore,
		RedisAddr:          cfg.RedisAddr,
		RedisPassword:      cfg.RedisPassword,
		SubmitPerMinute:    cfg.SubmitPerMinute,
		RecommendPerMinute: cfg.RecommendPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("shelfmatch server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
