// Package services – LedgerService
//
// This file implements the LedgerService, which owns all point balance
// mutations. Awards apply the level multiplier (looked up from the lifetime
// total BEFORE the award) and then the golden-hour multiplier, round to the
// nearest whole point, and append an earn row; redemptions spend against the
// catalog with a row-level balance guard and append a redeem row. Every
// mutation runs inside a transaction that couples the ledger append with the
// cached balance update, so the two can never drift apart.
//
// Service-level errors (e.g., ErrInsufficientBalance) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
	"github.com/freshplate/go-loyalty-backend/internal/loyalty"
	"github.com/freshplate/go-loyalty-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LedgerService coordinates point awards, redemptions, and history reads.
type LedgerService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Levels is the static membership level table.
	Levels loyalty.LevelTable
	// Golden is the daily bonus window configuration.
	Golden loyalty.GoldenHour
	// Catalog is the static redeemable reward list.
	Catalog loyalty.Catalog

	// Now is a clock seam for tests; nil means time.Now.
	Now func() time.Time
}

// NewLedgerService constructs a LedgerService with the given rules.
func NewLedgerService(db *gorm.DB, levels loyalty.LevelTable, golden loyalty.GoldenHour, catalog loyalty.Catalog) *LedgerService {
	return &LedgerService{DB: db, Levels: levels, Golden: golden, Catalog: catalog}
}

func (s *LedgerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AwardResult describes the outcome of a points award.
type AwardResult struct {
	Entry         *domain.LedgerEntry `json:"entry"`
	PointsAwarded int64               `json:"points_awarded"`
	Multiplier    float64             `json:"multiplier"`
	IsGoldenHour  bool                `json:"is_golden_hour"`
	CurrentPoints int64               `json:"current_points"`
	TotalPoints   int64               `json:"total_points"`
	Level         loyalty.Level       `json:"level"`
}

// RedeemResult describes the outcome of a reward redemption.
type RedeemResult struct {
	Entry           *domain.LedgerEntry `json:"entry"`
	Reward          loyalty.CatalogItem `json:"reward"`
	PointsRemaining int64               `json:"points_remaining"`
}

// Award credits basePoints (scaled by the level and golden-hour multipliers,
// rounded to nearest) to the account, appending an earn ledger row and
// incrementing both balances atomically. The account is auto-provisioned on
// first contact.
//
// The level multiplier is taken from the lifetime total BEFORE this award —
// an award that crosses a level threshold earns at the old rate, and the new
// rate applies from the next one. The golden-hour factor stacks on top
// (level first, then golden hour) and is decided by the local clock hour of
// the awarding instant.
//
// basePoints must be >= 0; negative input is a caller bug and is rejected
// with ErrNegativePoints before anything is touched.
func (s *LedgerService) Award(ctx context.Context, accountID string, basePoints int64, category, description string, referenceID *string) (*AwardResult, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Award",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.String("category", category),
			attribute.Int64("base_points", basePoints),
		),
	)
	defer span.End()

	if basePoints < 0 {
		return nil, ErrNegativePoints
	}
	if !validEarnCategory(category) {
		return nil, ErrInvalidCategory
	}

	awardedAt := s.now()
	golden := s.Golden.Active(awardedAt)

	var out AwardResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := repo.EnsureAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		// Level (and its multiplier) from the pre-award lifetime total.
		level := s.Levels.LevelFor(acct.TotalPoints)
		mult := level.Multiplier
		if golden {
			mult *= s.Golden.Multiplier
		}
		awarded := int64(math.Round(float64(basePoints) * mult))

		entry, err := credit(ctx, tx, accountID, awarded, category, description, referenceID)
		if err != nil {
			return err
		}

		out = AwardResult{
			Entry:         entry,
			PointsAwarded: awarded,
			Multiplier:    mult,
			IsGoldenHour:  golden,
			CurrentPoints: acct.CurrentPoints + awarded,
			TotalPoints:   acct.TotalPoints + awarded,
		}
		out.Level = s.Levels.LevelFor(out.TotalPoints)
		return nil
	})
	if err != nil {
		return nil, err
	}

	pointsAwarded.WithLabelValues(category).Add(float64(out.PointsAwarded))
	return &out, nil
}

// Redeem spends the catalog cost of rewardID from the account's spendable
// balance and appends a redeem ledger row with a negative delta. The
// lifetime total is untouched. On ErrUnknownReward or
// ErrInsufficientBalance the balance is exactly as it was before the call.
func (s *LedgerService) Redeem(ctx context.Context, accountID, rewardID string) (*RedeemResult, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Redeem",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.String("reward.id", rewardID),
		),
	)
	defer span.End()

	item, ok := s.Catalog.Item(rewardID)
	if !ok {
		return nil, ErrUnknownReward
	}

	var out RedeemResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := repo.GetAccount(ctx, tx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		// Guarded decrement: zero rows affected means the balance check
		// failed inside the database, not in Go memory.
		rows, err := repo.SpendPoints(ctx, tx, accountID, item.PointsCost)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInsufficientBalance
		}

		ref := item.ID
		entry, err := repo.AppendEntry(ctx, tx, accountID, -item.PointsCost,
			domain.KindRedeem, domain.CategoryRedemption, "Redeemed: "+item.Name, &ref)
		if err != nil {
			return err
		}

		out = RedeemResult{
			Entry:           entry,
			Reward:          item,
			PointsRemaining: acct.CurrentPoints - item.PointsCost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pointsRedeemed.Add(float64(item.PointsCost))
	return &out, nil
}

// ListLedgerPage returns paginated ledger history for an account, most
// recent first, plus the total row count.
func (s *LedgerService) ListLedgerPage(ctx context.Context, accountID string, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "ListLedgerPage",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetAccount(ctx, s.DB, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrAccountNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountEntries(ctx, s.DB, accountID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.LedgerEntry{}, 0, nil
	}

	items, err := repo.ListEntriesPage(ctx, s.DB, accountID, offset, pageSize)
	return items, total, err
}

// AccountSummary is the member-portal view of an account: cached balances
// plus the level derived from the lifetime total at read time.
type AccountSummary struct {
	Account      *domain.Account `json:"account"`
	Level        loyalty.Level   `json:"level"`
	NextLevel    *loyalty.Level  `json:"next_level,omitempty"`
	PointsToGo   int64           `json:"points_to_next_level,omitempty"`
	BadgesEarned int             `json:"badges_earned"`
}

// Summary loads an account and derives its level standing.
func (s *LedgerService) Summary(ctx context.Context, accountID string) (*AccountSummary, error) {
	acct, err := repo.GetAccount(ctx, s.DB, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	badges, err := repo.ListBadges(ctx, s.DB, accountID)
	if err != nil {
		return nil, err
	}

	sum := &AccountSummary{
		Account:      acct,
		Level:        s.Levels.LevelFor(acct.TotalPoints),
		BadgesEarned: len(badges),
	}
	for _, l := range s.Levels.Levels() {
		if l.MinPoints > acct.TotalPoints {
			next := l
			sum.NextLevel = &next
			sum.PointsToGo = l.MinPoints - acct.TotalPoints
			break
		}
	}
	return sum, nil
}

// credit appends an earn ledger row and increments both cached balances in
// one shot. Callers must already be inside a transaction; the phone claim
// flow reuses this so the reward credit commits or rolls back together with
// the claimed-phone insert.
func credit(ctx context.Context, tx *gorm.DB, accountID string, amount int64, category, description string, referenceID *string) (*domain.LedgerEntry, error) {
	entry, err := repo.AppendEntry(ctx, tx, accountID, amount, domain.KindEarn, category, description, referenceID)
	if err != nil {
		return nil, err
	}
	if err := repo.AddPoints(ctx, tx, accountID, amount); err != nil {
		return nil, err
	}
	return entry, nil
}

// validEarnCategory reports whether category is an accepted earn category.
// Redemption is a kind, not an awardable category.
func validEarnCategory(category string) bool {
	switch category {
	case domain.CategoryOrder, domain.CategoryReferral, domain.CategoryCommunity, domain.CategoryEngagement:
		return true
	default:
		return false
	}
}
