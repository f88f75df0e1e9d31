// Package services defines the business logic of the loyalty program: the
// points ledger, badge evaluation, and the phone-verification reward flow.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Every error here is an expected, recoverable outcome. Translation into
// user-facing messages or HTTP status codes is performed at the handler
// layer. On every failure path the services guarantee that no mutable state
// (balances, validation records, the claimed-phone set) was changed.
package services

import "errors"

// Ledger-related errors.
var (
	// ErrAccountNotFound indicates that the referenced loyalty account does
	// not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNegativePoints is returned when an award is attempted with negative
	// base points. Callers are contractually required not to do this; the
	// guard exists so a broken caller cannot corrupt balances.
	ErrNegativePoints = errors.New("base points must be >= 0")

	// ErrInvalidCategory is returned when an award names a category outside
	// the known earn categories.
	ErrInvalidCategory = errors.New("unknown points category")

	// ErrUnknownReward is returned when a redemption references a reward id
	// that is not in the catalog.
	ErrUnknownReward = errors.New("unknown reward")

	// ErrInsufficientBalance is returned when an account's spendable balance
	// is lower than the cost of the requested reward. The balance is left
	// untouched.
	ErrInsufficientBalance = errors.New("insufficient point balance")
)

// Phone-verification errors.
var (
	// ErrInvalidPhone is returned when a raw phone number normalizes to
	// nothing usable.
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrValidationNotFound indicates that the validation id is unknown
	// (never issued, or purged after expiry).
	ErrValidationNotFound = errors.New("validation not found")

	// ErrCodeExpired is returned when the validation's TTL has elapsed.
	// Terminal: the same validation id can never be verified afterwards.
	ErrCodeExpired = errors.New("verification code expired")

	// ErrAlreadyValidated is returned when verifying a code that was already
	// consumed by a successful verification.
	ErrAlreadyValidated = errors.New("code already validated")

	// ErrCodeMismatch is returned when the submitted code does not match the
	// issued one.
	ErrCodeMismatch = errors.New("verification code mismatch")

	// ErrNotValidated is returned when a claim is attempted on a validation
	// that has not passed verification.
	ErrNotValidated = errors.New("phone not validated")

	// ErrAlreadyClaimed is returned when this validation record's reward was
	// already claimed (idempotency guard against double submits).
	ErrAlreadyClaimed = errors.New("reward already claimed")

	// ErrPhoneAlreadyUsed is returned when the normalized phone number is in
	// the global claimed set — some claim, by any account, on any validation
	// record, got there first.
	ErrPhoneAlreadyUsed = errors.New("phone number already used for a reward")
)
