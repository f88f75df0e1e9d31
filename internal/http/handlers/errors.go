// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package). These codes give
// clients a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes (e.g., bad_request, not_found, conflict) mirror common
//     HTTP status semantics to aid interoperability.
//   - Domain-specific codes carry the loyalty/verification outcomes that a
//     status alone cannot convey — the storefront shows a different message
//     for insufficient_balance than for unknown_reward, and for code_expired
//     than for phone_already_used.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeGone             = "gone"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInsufficientBalance = "insufficient_balance"
	ErrCodeUnknownReward       = "unknown_reward"
	ErrCodeCodeExpired         = "code_expired"
	ErrCodeCodeMismatch        = "code_mismatch"
	ErrCodeAlreadyValidated    = "already_validated"
	ErrCodeNotValidated        = "not_validated"
	ErrCodeAlreadyClaimed      = "already_claimed"
	ErrCodePhoneAlreadyUsed    = "phone_already_used"
)
