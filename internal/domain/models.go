// Package domain defines the persistence models for loyalty accounts, the
// points ledger, badges, and phone verification. These types are mapped with
// GORM and form the core data layer of the loyalty backend.
package domain

import (
	"time"
)

// Ledger entry kinds. Every ledger row is exactly one of these.
const (
	KindEarn   = "earn"
	KindRedeem = "redeem"
)

// Categories describing why points moved. Redemptions always carry
// CategoryRedemption.
const (
	CategoryOrder      = "order"
	CategoryReferral   = "referral"
	CategoryCommunity  = "community"
	CategoryEngagement = "engagement"
	CategoryRedemption = "redemption"
)

// Account carries the cached point balances for a storefront account.
//
// CurrentPoints is the spendable balance and never goes below zero.
// TotalPoints is the lifetime earned total and never decreases; redemptions
// only touch CurrentPoints. Both are derivable by summing the ledger and are
// kept consistent with it on every write (balance updates happen inside the
// same transaction that appends the ledger row).
//
// The membership level is intentionally NOT a column: it is always recomputed
// from TotalPoints via the level table.
type Account struct {
	ID            string    `json:"id"             gorm:"type:varchar(64);primaryKey"`
	CurrentPoints int64     `json:"current_points" gorm:"not null;default:0;check:current_points >= 0"`
	TotalPoints   int64     `json:"total_points"   gorm:"not null;default:0;check:total_points >= 0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// LedgerEntry is one immutable row of the append-only points ledger. The
// ledger is the source of truth for both account balances.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - AccountID: owning account; indexed with CreatedAt for history reads.
//   - Delta: signed point change (> 0 for earn, < 0 for redeem).
//   - Kind: "earn" or "redeem" (enforced by DB constraint).
//   - Category: why the points moved (order/referral/community/engagement/redemption).
//   - Description: human-readable annotation shown in the member portal.
//   - ReferenceID: optional link to the originating order/referral/reward.
type LedgerEntry struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	AccountID   string    `json:"account_id"  gorm:"type:varchar(64);not null;index:idx_account_ledger,priority:1"`
	Delta       int64     `json:"delta"       gorm:"not null"`
	Kind        string    `json:"kind"        gorm:"type:varchar(8);not null;check:kind IN ('earn','redeem')"`
	Category    string    `json:"category"    gorm:"type:varchar(16);not null"`
	Description string    `json:"description" gorm:"type:varchar(255);not null"`
	ReferenceID *string   `json:"reference_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt   time.Time `json:"created_at"  gorm:"index:idx_account_ledger,priority:2"`
}

// TableName returns the database table name for LedgerEntry.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// AccountBadge records that an account holds a badge. Once written the row is
// permanent: badges are never revoked, and the unique index on
// (account_id, badge_code) makes re-awarding impossible even under races.
type AccountBadge struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	AccountID string    `json:"account_id" gorm:"type:varchar(64);not null;index;uniqueIndex:ux_account_badge,priority:1"`
	BadgeCode string    `json:"badge_code" gorm:"type:varchar(32);not null;uniqueIndex:ux_account_badge,priority:2"`
	EarnedAt  time.Time `json:"earned_at"  gorm:"not null"`
}

// TableName returns the database table name for AccountBadge.
func (AccountBadge) TableName() string { return "account_badges" }

// PhoneValidation is one phone verification attempt.
//
// Lifecycle: created Pending (code issued, IsValidated=false) →
// IsValidated=true on a correct, unexpired code → RewardClaimed=true on a
// successful claim. A claimed record is terminal and never mutated again.
// Expiry is implicit: a Pending record past ExpiresAt is rejected on every
// read (a background sweep may also purge such rows).
//
// The verification code is never serialized to JSON.
type PhoneValidation struct {
	ID              string     `json:"id"           gorm:"type:char(36);primaryKey"`
	AccountID       string     `json:"account_id"   gorm:"type:varchar(64);not null;index"`
	Phone           string     `json:"phone"        gorm:"type:varchar(20);not null;index"`
	Code            string     `json:"-"            gorm:"type:char(6);not null"`
	ExpiresAt       time.Time  `json:"expires_at"   gorm:"not null;index"`
	IsValidated     bool       `json:"is_validated"   gorm:"not null;default:false"`
	RewardClaimed   bool       `json:"reward_claimed" gorm:"not null;default:false"`
	RewardAmount    int64      `json:"reward_amount"  gorm:"not null;default:0"`
	RewardClaimedAt *time.Time `json:"reward_claimed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for PhoneValidation.
func (PhoneValidation) TableName() string { return "phone_validations" }

// ClaimedPhone is the global claimed-phone set: one row per normalized phone
// number that has ever completed a claim, across all accounts and validation
// records. The unique index on Phone is the single source of truth for the
// one-reward-per-physical-number invariant — every claim inserts here, and a
// duplicate-key failure means the number was already used, no matter which
// account or validation record got there first.
type ClaimedPhone struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	Phone        string    `json:"phone"         gorm:"type:varchar(20);not null;uniqueIndex:ux_claimed_phone"`
	AccountID    string    `json:"account_id"    gorm:"type:varchar(64);not null;index"`
	ValidationID string    `json:"validation_id" gorm:"type:char(36);not null"`
	ClaimedAt    time.Time `json:"claimed_at"    gorm:"not null"`
}

// TableName returns the database table name for ClaimedPhone.
func (ClaimedPhone) TableName() string { return "claimed_phones" }
