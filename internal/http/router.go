// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/freshplate/go-loyalty-backend/internal/config"
	"github.com/freshplate/go-loyalty-backend/internal/http/handlers"
	"github.com/freshplate/go-loyalty-backend/internal/http/middleware"
	"github.com/freshplate/go-loyalty-backend/internal/loyalty"
	"github.com/freshplate/go-loyalty-backend/internal/repo"
	"github.com/freshplate/go-loyalty-backend/internal/services"
)

// Program bundles the static rule tables the services run on: membership
// levels, the golden-hour window, the redemption catalog, and the badge set.
// Built once from configuration at startup.
type Program struct {
	Levels  loyalty.LevelTable
	Golden  loyalty.GoldenHour
	Catalog loyalty.Catalog
	Badges  loyalty.BadgeSet
}

// BuildProgram constructs the rule tables from configuration, falling back to
// the stock defaults when no overrides are set.
func BuildProgram(cfg config.Config) (Program, error) {
	levels, err := loyalty.ParseLevels(cfg.Loyalty.LevelsSpec)
	if err != nil {
		return Program{}, fmt.Errorf("LOYALTY_LEVELS: %w", err)
	}
	if levels == nil {
		levels = loyalty.DefaultLevels()
	}
	table, err := loyalty.NewLevelTable(levels)
	if err != nil {
		return Program{}, fmt.Errorf("LOYALTY_LEVELS: %w", err)
	}

	items, err := loyalty.ParseCatalog(cfg.Loyalty.CatalogSpec)
	if err != nil {
		return Program{}, fmt.Errorf("LOYALTY_CATALOG: %w", err)
	}
	if items == nil {
		items = loyalty.DefaultCatalog()
	}
	catalog, err := loyalty.NewCatalog(items)
	if err != nil {
		return Program{}, fmt.Errorf("LOYALTY_CATALOG: %w", err)
	}

	return Program{
		Levels: table,
		Golden: loyalty.GoldenHour{
			StartHour:  cfg.Loyalty.GoldenHourStart,
			EndHour:    cfg.Loyalty.GoldenHourEnd,
			Multiplier: cfg.Loyalty.GoldenHourMultiplier,
		},
		Catalog: catalog,
		Badges:  loyalty.NewBadgeSet(loyalty.DefaultBadges(cfg.Loyalty.LaunchDate)),
	}, nil
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per account/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, prog Program, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (raw phone numbers are PII)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, accountID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, accountID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per account/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByAccountOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← rules/db
	pointsSvc := services.NewLedgerService(db, prog.Levels, prog.Golden, prog.Catalog)
	badgeSvc := services.NewBadgeService(db, prog.Badges)
	phoneSvc := services.NewPhoneService(db, cfg.Phone.CodeTTL, cfg.Phone.RewardAmount, cfg.Phone.CountryCode)

	h := handlers.New(pointsSvc, badgeSvc, phoneSvc, prog.Levels, prog.Catalog, cfg.IdempotencyTTL)

	// Public API (compressed; JSON responses shrink well)
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		// Accounts
		api.GET("/accounts/:id", h.GetAccount)
		api.POST("/accounts/:id/points", h.AwardPoints)
		api.POST("/accounts/:id/redemptions", h.RedeemPoints)
		api.GET("/accounts/:id/ledger", h.ListLedger)
		api.GET("/accounts/:id/badges", h.ListBadges)

		// Program tables
		api.GET("/levels", h.ListLevels)
		api.GET("/levels/for", h.LevelFor)
		api.GET("/rewards", h.ListRewards)

		// Phone verification
		api.POST("/phone/verifications", h.IssueVerification)
		api.POST("/phone/verifications/:id/verify", h.Verify)
		api.POST("/phone/verifications/:id/claim", h.Claim)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
