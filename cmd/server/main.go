// Command server runs the loyalty points and phone-verification reward API.
//
// Startup order: .env (optional) → configuration → logging → database open +
// migration → OpenTelemetry → background sweep → HTTP server with graceful
// shutdown.
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

	"github.com/freshplate/go-loyalty-backend/internal/config"
	httpapi "github.com/freshplate/go-loyalty-backend/internal/http"
	"github.com/freshplate/go-loyalty-backend/internal/observability"
	"github.com/freshplate/go-loyalty-backend/internal/repo"
	"github.com/freshplate/go-loyalty-backend/internal/services"
	"github.com/freshplate/go-loyalty-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	prog, err := httpapi.BuildProgram(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid program rules")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, prog, cfg)

	// Background sweep of expired pending validations. Correctness never
	// depends on it; expiry is also enforced on every read.
	if cfg.Phone.SweepInterval > 0 {
		phoneSvc := services.NewPhoneService(db, cfg.Phone.CodeTTL, cfg.Phone.RewardAmount, cfg.Phone.CountryCode)
		go func() {
			t := time.NewTicker(cfg.Phone.SweepInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if _, err := phoneSvc.PurgeExpired(ctx); err != nil {
						log.Warn().Err(err).Msg("expired validation sweep failed")
					}
				}
			}
		}()
	}

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
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("base_path", cfg.APIBasePath).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}
