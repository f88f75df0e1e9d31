// Package services – BadgeService
//
// This file implements the BadgeService, which idempotently grants badges
// when a tracked metric crosses a badge threshold (or a predicate badge's
// condition holds). It never mutates balances: it only reads ledger counters
// and account facts, and writes badge rows. The unique index on
// (account_id, badge_code) is the backstop that keeps a grant race from ever
// awarding the same badge twice.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
	"github.com/freshplate/go-loyalty-backend/internal/loyalty"
	"github.com/freshplate/go-loyalty-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BadgeService evaluates badge requirements against account metrics.
type BadgeService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Badges is the static badge definition set.
	Badges loyalty.BadgeSet

	// Now is a clock seam for tests; nil means time.Now.
	Now func() time.Time
}

// NewBadgeService constructs a BadgeService over the given badge set.
func NewBadgeService(db *gorm.DB, badges loyalty.BadgeSet) *BadgeService {
	return &BadgeService{DB: db, Badges: badges}
}

func (s *BadgeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Evaluate checks every badge triggered by metricCode against the current
// metric value and grants the ones newly satisfied. Only freshly granted
// badges are returned; repeating a call with the same (or higher) value
// yields an empty result for badges already held.
func (s *BadgeService) Evaluate(ctx context.Context, accountID, metricCode string, value int64) ([]domain.AccountBadge, error) {
	tr := otel.Tracer("services/BadgeService")
	ctx, span := tr.Start(ctx, "Evaluate",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.String("metric", metricCode),
			attribute.Int64("value", value),
		),
	)
	defer span.End()

	candidates := s.Badges.ForMetric(metricCode)
	if len(candidates) == 0 {
		return nil, nil
	}

	acct, err := repo.GetAccount(ctx, s.DB, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	facts := loyalty.Facts{AccountID: acct.ID, CreatedAt: acct.CreatedAt}

	held, err := repo.HeldBadgeCodes(ctx, s.DB, accountID)
	if err != nil {
		return nil, err
	}

	var granted []domain.AccountBadge
	for _, b := range candidates {
		if _, ok := held[b.Code]; ok {
			continue
		}
		if !b.Satisfied(value, facts) {
			continue
		}
		rec, err := repo.GrantBadge(ctx, s.DB, accountID, b.Code, s.now())
		if err != nil {
			// A concurrent evaluation granted it first; that is fine, the
			// badge is held either way and must not appear as new here.
			if errors.Is(err, repo.ErrDuplicate) {
				continue
			}
			return nil, err
		}
		granted = append(granted, *rec)
	}
	return granted, nil
}

// EvaluateAfterEarn runs the evaluations that follow a points earn in the
// given category: threshold badges keyed to that category (valued by the
// account's earn-entry count) and the member-fact predicate badges.
func (s *BadgeService) EvaluateAfterEarn(ctx context.Context, accountID, category string) ([]domain.AccountBadge, error) {
	count, err := repo.CountEarnByCategory(ctx, s.DB, accountID, category)
	if err != nil {
		return nil, err
	}
	granted, err := s.Evaluate(ctx, accountID, category, count)
	if err != nil {
		return nil, err
	}
	memberGranted, err := s.Evaluate(ctx, accountID, loyalty.MetricMember, 0)
	if err != nil {
		return nil, err
	}
	return append(granted, memberGranted...), nil
}

// List returns the badges an account holds.
func (s *BadgeService) List(ctx context.Context, accountID string) ([]domain.AccountBadge, error) {
	return repo.ListBadges(ctx, s.DB, accountID)
}
