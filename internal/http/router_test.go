package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/freshplate/go-loyalty-backend/internal/config"
	"github.com/freshplate/go-loyalty-backend/internal/repo"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newRouterTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routertest_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.RateRPS = 1000 // keep the limiter out of the way
	cfg.RateBurst = 1000

	prog, err := BuildProgram(cfg)
	if err != nil {
		t.Fatalf("build program: %v", err)
	}
	r := gin.New()
	RegisterRoutes(r, newRouterTestDB(t), prog, cfg)
	return r
}

func TestBuildProgram_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	prog, err := BuildProgram(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(prog.Levels.Levels()) != 4 {
		t.Fatalf("levels = %d", len(prog.Levels.Levels()))
	}
	if len(prog.Catalog.Items()) != 5 {
		t.Fatalf("catalog = %d", len(prog.Catalog.Items()))
	}
	if prog.Golden.StartHour != 2 || prog.Golden.EndHour != 4 || prog.Golden.Multiplier != 2.0 {
		t.Fatalf("golden = %+v", prog.Golden)
	}
	if len(prog.Badges.All()) != 6 {
		t.Fatalf("badges = %d", len(prog.Badges.All()))
	}
}

func TestBuildProgram_Overrides(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Loyalty.LevelsSpec = "Basic:0:1.0,Pro:500:1.2"
	cfg.Loyalty.CatalogSpec = "only:Only_reward:100:1"

	prog, err := BuildProgram(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := prog.Levels.Levels(); len(got) != 2 || got[1].Name != "Pro" {
		t.Fatalf("levels = %+v", got)
	}
	if got := prog.Catalog.Items(); len(got) != 1 || got[0].Name != "Only reward" {
		t.Fatalf("catalog = %+v", got)
	}
}

func TestBuildProgram_BadSpecs(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	bad := cfg
	bad.Loyalty.LevelsSpec = "Pro:500:1.2" // no floor level
	if _, err := BuildProgram(bad); err == nil {
		t.Fatalf("floorless level spec should fail")
	}

	bad = cfg
	bad.Loyalty.CatalogSpec = "dup:A:100:1,dup:B:200:1"
	if _, err := BuildProgram(bad); err == nil {
		t.Fatalf("duplicate catalog ids should fail")
	}
}

func TestRouter_HealthAndFallbacks(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("X-Request-ID header missing")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", w.Code)
	}
	var e struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != "not_found" {
		t.Fatalf("fallback body = %s (%v)", w.Body.String(), err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("method fallback = %d", w.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	r := newTestEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
}

func TestRouter_APIRoutesMounted(t *testing.T) {
	r := newTestEngine(t)

	// Static program tables are served under the versioned base path.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/levels", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("levels = %d, body %s", w.Code, w.Body.String())
	}

	// A full write path through the whole middleware stack.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/a42/points",
		jsonBody(`{"points": 100, "category": "order", "description": "box"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("award = %d, body %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/a42", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d, body %s", w.Code, w.Body.String())
	}
}

func TestRouter_SecurityAndCORSHeaders(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("ACAO = %q (no CORS allowlist configured)", got)
	}
}

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}

func TestGroupWithPrefix(t *testing.T) {
	r := gin.New()
	if g := groupWithPrefix(r, "/"); g.BasePath() != "/" {
		t.Errorf("root group = %q", g.BasePath())
	}
	if g := groupWithPrefix(r, "/api/v1"); g.BasePath() != "/api/v1" {
		t.Errorf("prefixed group = %q", g.BasePath())
	}
}
