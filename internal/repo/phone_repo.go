// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for phone
// validations and the global claimed-phone set.
//
// InsertClaimedPhone is the authoritative check-and-insert behind the
// one-reward-per-phone invariant: it relies on the unique index on
// claimed_phones.phone, so the check and the insert are a single indivisible
// database operation — never a read followed by a later write.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
)

// ErrDuplicate indicates that a row violating a unique constraint already
// exists (an already-held badge, an already-claimed phone, a replayed
// idempotency key).
var ErrDuplicate = errors.New("duplicate")

// CreateValidation inserts a new Pending phone validation.
func CreateValidation(ctx context.Context, db *gorm.DB, accountID, phone, code string, expiresAt time.Time) (*domain.PhoneValidation, error) {
	v := &domain.PhoneValidation{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Phone:     phone,
		Code:      code,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

// GetValidation fetches a validation by ID, or ErrNotFound if missing.
func GetValidation(ctx context.Context, db *gorm.DB, id string) (*domain.PhoneValidation, error) {
	var v domain.PhoneValidation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// MarkValidated flips IsValidated on a validation record. Returns ErrNotFound
// when no row matches.
func MarkValidated(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.PhoneValidation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_validated": true,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkClaimed records a successful claim on the validation: the reward amount,
// the claim timestamp, and the terminal RewardClaimed flag. The guard
// "reward_claimed = 0" means a second concurrent claim matches zero rows.
func MarkClaimed(ctx context.Context, db *gorm.DB, id string, amount int64, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.PhoneValidation{}).
		Where("id = ? AND reward_claimed = ?", id, false).
		Updates(map[string]any{
			"reward_claimed":    true,
			"reward_amount":     amount,
			"reward_claimed_at": at.UTC(),
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// InsertClaimedPhone adds a normalized phone number to the global claimed set.
// A unique violation — the number was claimed before, by any account, via any
// validation — surfaces as ErrDuplicate. Callers run this inside the claim
// transaction so a failed insert leaves every other row untouched.
func InsertClaimedPhone(ctx context.Context, db *gorm.DB, phone, accountID, validationID string, at time.Time) error {
	rec := &domain.ClaimedPhone{
		ID:           uuid.NewString(),
		Phone:        phone,
		AccountID:    accountID,
		ValidationID: validationID,
		ClaimedAt:    at.UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// IsPhoneClaimed reports whether the normalized phone number is already in
// the claimed set. This read is advisory only (used by verify for early UI
// feedback); the race-safe answer comes from InsertClaimedPhone.
func IsPhoneClaimed(ctx context.Context, db *gorm.DB, phone string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ClaimedPhone{}).
		Where("phone = ?", phone).
		Count(&n).Error
	return n > 0, err
}

// PurgeExpiredValidations deletes Pending validations whose TTL elapsed
// before the given instant. Purely a cleanup convenience: expiry is also
// enforced on every read, so correctness never depends on the sweep running.
func PurgeExpiredValidations(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("is_validated = ? AND expires_at < ?", false, now.UTC()).
		Delete(&domain.PhoneValidation{})
	return res.RowsAffected, res.Error
}
