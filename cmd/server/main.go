// Command server runs the village service request backend: the public HTTP
// API, the operator dashboard, and the background WhatsApp notification
// dispatcher.
//
// Startup order: env → config → logging → tracing → database → storage →
// router → dispatcher → HTTP server. Shutdown is graceful: SIGINT/SIGTERM
// stops accepting connections, drains in-flight requests, stops the
// dispatcher, and flushes the trace exporter.
//
// @title        Layanan Desa Tempursari API
// @version      1.0
// @description  Citizen service request portal backend with WhatsApp status notifications.
// @BasePath     /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/desa-tempursari/layanan-backend/internal/config"
	httpapi "github.com/desa-tempursari/layanan-backend/internal/http"
	"github.com/desa-tempursari/layanan-backend/internal/notify"
	"github.com/desa-tempursari/layanan-backend/internal/observability"
	"github.com/desa-tempursari/layanan-backend/internal/repo"
	"github.com/desa-tempursari/layanan-backend/internal/storage"
	"github.com/desa-tempursari/layanan-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}

	store, err := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.BaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("root", cfg.Storage.Root).Msg("storage init failed")
	}

	wa := notify.NewClient(cfg.WAHA.URL, cfg.WAHA.APIKey, cfg.WAHA.Session)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, store, wa, cfg)

	// Background notification dispatcher.
	disp := notify.NewDispatcher(db, wa)
	disp.Interval = cfg.Notify.Interval
	disp.BatchSize = cfg.Notify.BatchSize
	disp.MaxAttempts = cfg.Notify.MaxAttempts
	go disp.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("server stopped")
}
