// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for account badges.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
)

// ListBadges returns every badge held by the account, oldest first.
func ListBadges(ctx context.Context, db *gorm.DB, accountID string) ([]domain.AccountBadge, error) {
	var out []domain.AccountBadge
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("earned_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// HeldBadgeCodes returns the set of badge codes the account already holds.
// The evaluator consults this before attempting a grant.
func HeldBadgeCodes(ctx context.Context, db *gorm.DB, accountID string) (map[string]struct{}, error) {
	var codes []string
	err := db.WithContext(ctx).
		Model(&domain.AccountBadge{}).
		Where("account_id = ?", accountID).
		Pluck("badge_code", &codes).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		out[c] = struct{}{}
	}
	return out, nil
}

// GrantBadge inserts a badge row and returns ErrDuplicate when the account
// already holds the badge (unique violation on (account_id, badge_code)).
// This makes grants idempotent even when two evaluations race.
func GrantBadge(ctx context.Context, db *gorm.DB, accountID, code string, at time.Time) (*domain.AccountBadge, error) {
	b := &domain.AccountBadge{
		ID:        uuid.NewString(),
		AccountID: accountID,
		BadgeCode: code,
		EarnedAt:  at.UTC(),
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return b, nil
}

// isUniqueViolation sniffs driver error text for unique-constraint failures.
// glebarez/sqlite often returns plain-text errors instead of
// gorm.ErrDuplicatedKey; Postgres phrases it differently again.
func isUniqueViolation(err error) bool {
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
