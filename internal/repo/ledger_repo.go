// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// points ledger.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
)

// AppendEntry inserts a new immutable ledger row. The entry ID is a randomly
// generated UUID (string), and CreatedAt is set to UTC. There is no update or
// delete counterpart: the ledger only ever grows.
func AppendEntry(ctx context.Context, db *gorm.DB, accountID string, delta int64, kind, category, description string, referenceID *string) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Delta:       delta,
		Kind:        kind,
		Category:    category,
		Description: description,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntry returns a single ledger row by ID. The idempotent award replay
// path uses this to serve the previously recorded entry.
func GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	if err := db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// CountEntries returns the total number of ledger rows for an account.
func CountEntries(ctx context.Context, db *gorm.DB, accountID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("account_id = ?", accountID).
		Count(&total).Error
	return total, err
}

// ListEntriesPage returns a paginated slice of ledger rows for an account,
// most recent first, ordered deterministically (CreatedAt DESC, ID DESC).
func ListEntriesPage(ctx context.Context, db *gorm.DB, accountID string, offset, limit int) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountEarnByCategory returns how many earn entries an account has in the
// given category. Badge thresholds are evaluated against these counts.
func CountEarnByCategory(ctx context.Context, db *gorm.DB, accountID, category string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("account_id = ? AND kind = ? AND category = ?", accountID, domain.KindEarn, category).
		Count(&total).Error
	return total, err
}

// SumDeltas recomputes both balances straight from the ledger: current is the
// sum of all deltas, total the sum of earn deltas only. The cached columns on
// the account row must always agree with these sums; tests and audits use
// this to verify the invariant.
func SumDeltas(ctx context.Context, db *gorm.DB, accountID string) (current, total int64, err error) {
	type row struct {
		Current int64
		Total   int64
	}
	var r row
	err = db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(delta), 0) AS current,
			COALESCE(SUM(CASE WHEN kind = 'earn' THEN delta ELSE 0 END), 0) AS total
		FROM ledger_entries WHERE account_id = ?`, accountID).
		Scan(&r).Error
	return r.Current, r.Total, err
}
