// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, loyalty
// program rules, phone verification policy, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-loyalty-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LoyaltyConfig defines the program rules: membership levels, the redemption
// catalog, the daily golden-hour window, and the founding-member cutoff.
//
// LevelsSpec and CatalogSpec are raw override strings parsed by the loyalty
// package at startup; empty means use the built-in defaults.
type LoyaltyConfig struct {
	LevelsSpec  string // LOYALTY_LEVELS ("Name:minPoints:multiplier,...")
	CatalogSpec string // LOYALTY_CATALOG ("id:name:cost:tier,...")

	GoldenHourStart      int     // GOLDEN_HOUR_START, local hour [0,24)
	GoldenHourEnd        int     // GOLDEN_HOUR_END, local hour [0,24)
	GoldenHourMultiplier float64 // GOLDEN_HOUR_MULTIPLIER, >= 1

	LaunchDate time.Time // LAUNCH_DATE (RFC 3339), founding-member cutoff
}

// PhoneConfig defines the phone verification policy.
type PhoneConfig struct {
	CodeTTL       time.Duration // PHONE_CODE_TTL, how long a code stays verifiable
	RewardAmount  int64         // PHONE_REWARD_AMOUNT, points credited per claim
	CountryCode   string        // DEFAULT_COUNTRY_CODE for 10-digit numbers
	SweepInterval time.Duration // PHONE_SWEEP_INTERVAL between expired-row purges (0 disables)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	DBPath string // SQLite path

	// Program rules
	Loyalty LoyaltyConfig
	Phone   PhoneConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "loyalty.db"),

		// Program rules
		Loyalty: LoyaltyConfig{
			LevelsSpec:           getenv("LOYALTY_LEVELS", ""),
			CatalogSpec:          getenv("LOYALTY_CATALOG", ""),
			GoldenHourStart:      getint("GOLDEN_HOUR_START", 2),
			GoldenHourEnd:        getint("GOLDEN_HOUR_END", 4),
			GoldenHourMultiplier: getfloat("GOLDEN_HOUR_MULTIPLIER", 2.0),
			LaunchDate:           gettime("LAUNCH_DATE", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
		Phone: PhoneConfig{
			CodeTTL:       getdur("PHONE_CODE_TTL", 15*time.Minute),
			RewardAmount:  getint64("PHONE_REWARD_AMOUNT", 200),
			CountryCode:   getenv("DEFAULT_COUNTRY_CODE", "1"),
			SweepInterval: getdur("PHONE_SWEEP_INTERVAL", 15*time.Minute),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-loyalty-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Loyalty.GoldenHourStart < 0 || cfg.Loyalty.GoldenHourStart > 23 {
		return cfg, errors.New("GOLDEN_HOUR_START must be in [0,23]")
	}
	if cfg.Loyalty.GoldenHourEnd < 0 || cfg.Loyalty.GoldenHourEnd > 23 {
		return cfg, errors.New("GOLDEN_HOUR_END must be in [0,23]")
	}
	if cfg.Loyalty.GoldenHourMultiplier < 1 {
		return cfg, errors.New("GOLDEN_HOUR_MULTIPLIER must be >= 1")
	}
	if cfg.Phone.CodeTTL <= 0 {
		return cfg, errors.New("PHONE_CODE_TTL must be > 0")
	}
	if cfg.Phone.RewardAmount <= 0 {
		return cfg, errors.New("PHONE_REWARD_AMOUNT must be > 0")
	}
	if strings.TrimSpace(cfg.Phone.CountryCode) == "" {
		return cfg, errors.New("DEFAULT_COUNTRY_CODE must not be empty")
	}
	if cfg.Phone.SweepInterval < 0 {
		return cfg, errors.New("PHONE_SWEEP_INTERVAL must be >= 0 (0 disables the sweep)")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func gettime(k string, def time.Time) time.Time {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
