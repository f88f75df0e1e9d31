// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
)

// LedgerStats returns aggregate metadata for an account's ledger: the total
// number of rows and the maximum CreatedAt timestamp among them. Since ledger
// rows are immutable, (count, latest) uniquely fingerprints the history,
// which makes it a cheap weak-ETag source for the history endpoint.
//
// When the account has no ledger rows, the returned count is 0 and latest is
// nil.
func LedgerStats(ctx context.Context, db *gorm.DB, accountID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.LedgerEntry{}).Where("account_id = ?", accountID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
