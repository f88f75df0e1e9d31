// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Account
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an account is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Balance updates are expressed as single SQL statements
// ("current_points = current_points + ?") so the read-modify-write happens
// inside the database, never in Go memory. Concurrent awards on the same
// account therefore cannot lose an update, and the redemption guard
// ("AND current_points >= cost") enforces the non-negative balance invariant
// at the row level.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetAccount fetches a single account by ID, or ErrNotFound if missing.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAccount fetches the account with the given ID, creating a zero-balance
// row if none exists yet. Storefront events routinely arrive for accounts this
// subsystem has never seen, so awards auto-provision their account.
//
// The insert uses ON CONFLICT DO NOTHING so two concurrent first awards for
// the same account cannot fail on the primary key; the follow-up read returns
// whichever row won.
func EnsureAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	a := &domain.Account{ID: id, CreatedAt: time.Now().UTC()}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(a).Error
	if err != nil {
		return nil, err
	}
	return GetAccount(ctx, db, id)
}

// AddPoints atomically increments both the spendable and lifetime balances of
// an account. Both deltas must be >= 0 (earns never reduce balances).
// Returns ErrNotFound when the account row does not exist.
func AddPoints(ctx context.Context, db *gorm.DB, id string, delta int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_points": gorm.Expr("current_points + ?", delta),
			"total_points":   gorm.Expr("total_points + ?", delta),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SpendPoints atomically decrements the spendable balance by cost, guarded by
// "current_points >= cost" in the same statement. The lifetime total is never
// touched. It returns the number of rows affected: 0 means the guard failed
// (insufficient balance) or the account is missing — the caller distinguishes
// the two, typically by loading the account first inside the transaction.
func SpendPoints(ctx context.Context, db *gorm.DB, id string, cost int64) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ? AND current_points >= ?", id, cost).
		Updates(map[string]any{
			"current_points": gorm.Expr("current_points - ?", cost),
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
