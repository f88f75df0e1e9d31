// Account HTTP handlers.
//
// This file exposes REST endpoints for loyalty accounts:
//   - GET  /accounts/{id}              (balance summary + derived level)
//   - POST /accounts/{id}/points       (award points, evaluate badges)
//   - POST /accounts/{id}/redemptions  (spend points on a catalog reward)
//   - GET  /accounts/{id}/ledger       (paginated history, ETag support)
//   - GET  /accounts/{id}/badges       (badges held)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
//
// Idempotency:
// If the client supplies an Idempotency-Key header on the award endpoint and a
// previous successful result exists for (account, key), the handler returns
// the recorded ledger entry and sets `Idempotency-Replayed: true` instead of
// crediting the points a second time.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
	"github.com/freshplate/go-loyalty-backend/internal/http/middleware"
	"github.com/freshplate/go-loyalty-backend/internal/loyalty"
	"github.com/freshplate/go-loyalty-backend/internal/repo"
	"github.com/freshplate/go-loyalty-backend/internal/services"
	"github.com/freshplate/go-loyalty-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// PointsService defines the balance mutations and reads consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PointsService interface {
	// Award credits scaled points to an account and appends an earn entry.
	Award(ctx context.Context, accountID string, basePoints int64, category, description string, referenceID *string) (*services.AwardResult, error)
	// Redeem spends the catalog cost of a reward from the spendable balance.
	Redeem(ctx context.Context, accountID, rewardID string) (*services.RedeemResult, error)
	// ListLedgerPage returns a page of ledger entries and the total count.
	ListLedgerPage(ctx context.Context, accountID string, page, pageSize int) ([]domain.LedgerEntry, int64, error)
	// Summary loads an account with its derived level standing.
	Summary(ctx context.Context, accountID string) (*services.AccountSummary, error)
}

// BadgeService defines badge evaluation and listing operations.
type BadgeService interface {
	// EvaluateAfterEarn grants any badges newly unlocked by an earn event.
	EvaluateAfterEarn(ctx context.Context, accountID, category string) ([]domain.AccountBadge, error)
	// List returns the badges an account holds.
	List(ctx context.Context, accountID string) ([]domain.AccountBadge, error)
}

// PhoneService defines the phone verification reward flow.
type PhoneService interface {
	// Issue creates a Pending validation with a fresh code.
	Issue(ctx context.Context, accountID, rawPhone string) (*domain.PhoneValidation, error)
	// Verify checks a submitted code against a validation record.
	Verify(ctx context.Context, validationID, code string) (*services.VerifyResult, error)
	// Claim grants the one-time reward for a validated phone.
	Claim(ctx context.Context, validationID string) (*services.ClaimResult, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for accounts, rewards, levels, and phone
// verification. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	pointsSvc PointsService
	badgeSvc  BadgeService
	phoneSvc  PhoneService

	levels  loyalty.LevelTable
	catalog loyalty.Catalog

	idemTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services
// and static program tables.
func New(pointsSvc PointsService, badgeSvc BadgeService, phoneSvc PhoneService, levels loyalty.LevelTable, catalog loyalty.Catalog, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{
		pointsSvc: pointsSvc,
		badgeSvc:  badgeSvc,
		phoneSvc:  phoneSvc,
		levels:    levels,
		catalog:   catalog,
		idemTTL:   idemTTL,
	}
}

//
// DTOs
//

// AwardPointsRequest is the JSON payload for crediting points.
type AwardPointsRequest struct {
	// Points is the base amount before multipliers; must be >= 0.
	Points int64 `json:"points"`
	// Category classifies the earn event: order, referral, community, engagement.
	Category string `json:"category" binding:"required"`
	// Description is a human-readable note stored on the ledger entry.
	Description string `json:"description"`
	// ReferenceID optionally links the entry to an upstream record (order id, …).
	ReferenceID *string `json:"reference_id"`
}

// AwardPointsResponse reports the credited entry plus any badges the earn
// event unlocked. On an idempotent replay only Entry and PointsAwarded are
// populated.
type AwardPointsResponse struct {
	Entry         *domain.LedgerEntry   `json:"entry"`
	PointsAwarded int64                 `json:"points_awarded"`
	Multiplier    float64               `json:"multiplier,omitempty"`
	IsGoldenHour  bool                  `json:"is_golden_hour"`
	CurrentPoints int64                 `json:"current_points"`
	TotalPoints   int64                 `json:"total_points"`
	Level         *loyalty.Level        `json:"level,omitempty"`
	NewBadges     []domain.AccountBadge `json:"new_badges"`
}

// RedeemRequest is the JSON payload for spending points on a reward.
type RedeemRequest struct {
	// RewardID is the catalog identifier of the reward to redeem.
	RewardID string `json:"reward_id" binding:"required"`
}

// RedeemResponse reports the redemption outcome.
type RedeemResponse struct {
	Entry           *domain.LedgerEntry `json:"entry"`
	Reward          loyalty.CatalogItem `json:"reward"`
	PointsRemaining int64               `json:"points_remaining"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListLedgerResponse contains a page of ledger entries and pagination metadata.
type ListLedgerResponse struct {
	Entries    []domain.LedgerEntry `json:"entries"`
	Pagination Pagination           `json:"pagination"`
}

// ListBadgesResponse contains the badges an account holds.
type ListBadgesResponse struct {
	Badges []domain.AccountBadge `json:"badges"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// accountID extracts and validates the :id path parameter. Account IDs come
// from the storefront, so only non-emptiness is enforced here.
func accountID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account id required")
		return "", false
	}
	return id, true
}

//
// Handlers
//

// GetAccount returns the account's balance summary with its derived level,
// progress toward the next level, and badge count.
func (h *Handlers) GetAccount(c *gin.Context) {
	id, okID := accountID(c)
	if !okID {
		return
	}

	sum, err := h.pointsSvc.Summary(c.Request.Context(), id)
	if err != nil {
		switch err {
		case services.ErrAccountNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, sum)
}

// AwardPoints credits points to the account (applying level and golden-hour
// multipliers), then evaluates badge thresholds for the earn category. Newly
// unlocked badges ride along in the response.
func (h *Handlers) AwardPoints(c *gin.Context) {
	ctx := c.Request.Context()
	id, okID := accountID(c)
	if !okID {
		return
	}

	var req AwardPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "points and category required")
		return
	}
	if req.Points < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "points must be >= 0")
		return
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.pointsSvc.(*services.LedgerService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, id, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetEntry(ctx, svc.DB, rec.EntryID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, AwardPointsResponse{
						Entry:         prev,
						PointsAwarded: prev.Delta,
						NewBadges:     []domain.AccountBadge{},
					})
					return
				}
			}
		}
	}

	res, err := h.pointsSvc.Award(ctx, id, req.Points, req.Category, req.Description, req.ReferenceID)
	if err != nil {
		switch err {
		case services.ErrNegativePoints:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "points must be >= 0")
		case services.ErrInvalidCategory:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown earn category")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Badge evaluation follows the award; a failure here must not undo or
	// hide the credit, so it degrades to an empty badge list.
	newBadges, err := h.badgeSvc.EvaluateAfterEarn(ctx, id, req.Category)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).
			Str("account_id", id).
			Msg("badge evaluation failed after award")
		newBadges = nil
	}
	if newBadges == nil {
		newBadges = []domain.AccountBadge{}
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && res.Entry != nil {
		if svc, okSvc := h.pointsSvc.(*services.LedgerService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, id, idemKey, res.Entry.ID, http.StatusOK, h.idemTTL)
		}
	}

	level := res.Level
	ok(c, http.StatusOK, AwardPointsResponse{
		Entry:         res.Entry,
		PointsAwarded: res.PointsAwarded,
		Multiplier:    res.Multiplier,
		IsGoldenHour:  res.IsGoldenHour,
		CurrentPoints: res.CurrentPoints,
		TotalPoints:   res.TotalPoints,
		Level:         &level,
		NewBadges:     newBadges,
	})
}

// RedeemPoints spends the catalog cost of a reward from the account's
// spendable balance. The lifetime total (and therefore the level) never drops.
func (h *Handlers) RedeemPoints(c *gin.Context) {
	id, okID := accountID(c)
	if !okID {
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reward_id required")
		return
	}

	res, err := h.pointsSvc.Redeem(c.Request.Context(), id, req.RewardID)
	if err != nil {
		switch err {
		case services.ErrUnknownReward:
			fail(c, http.StatusNotFound, ErrCodeUnknownReward, "unknown reward")
		case services.ErrAccountNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		case services.ErrInsufficientBalance:
			fail(c, http.StatusConflict, ErrCodeInsufficientBalance, "insufficient point balance")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, RedeemResponse{
		Entry:           res.Entry,
		Reward:          res.Reward,
		PointsRemaining: res.PointsRemaining,
	})
}

// ListLedger returns a page of the account's ledger history, most recent
// first, with a weak ETag so polling clients can short-circuit with 304.
func (h *Handlers) ListLedger(c *gin.Context) {
	ctx := c.Request.Context()
	id, okID := accountID(c)
	if !okID {
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.pointsSvc.(*services.LedgerService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.LedgerStats(ctx, db, id)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"ledger:%s:%d:%d"`, id, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.pointsSvc.ListLedgerPage(ctx, id, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrAccountNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListLedgerResponse{
		Entries: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListBadges returns the badges the account holds, newest first.
func (h *Handlers) ListBadges(c *gin.Context) {
	id, okID := accountID(c)
	if !okID {
		return
	}

	badges, err := h.badgeSvc.List(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if badges == nil {
		badges = []domain.AccountBadge{}
	}
	ok(c, http.StatusOK, ListBadgesResponse{Badges: badges})
}
