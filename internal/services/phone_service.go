// Package services – PhoneService
//
// This file implements the phone-verification reward flow, the one place in
// the program where money is on the line: a fixed reward may be granted at
// most once per physical phone number, ever, regardless of how many accounts
// or validation records reference that number.
//
// The flow is a three-step state machine per validation record:
//
//	Pending (code issued) → Validated (correct code in time) → Claimed
//
// Expiry is implicit (checked on every read) and terminal. Verification
// computes an ADVISORY can-claim flag from a plain lookup so the UI can warn
// early; the AUTHORITATIVE guard is the unique-index insert into the
// claimed_phones table inside the claim transaction. If that insert loses,
// the transaction rolls back and nothing — not the validation record, not
// the balances — has changed.
//
// Sending the code over SMS is an external collaborator's job; this service
// only generates and stores it.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
	"github.com/freshplate/go-loyalty-backend/internal/loyalty"
	"github.com/freshplate/go-loyalty-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PhoneService owns phone validations and the claimed-phone invariant.
type PhoneService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// CodeTTL is how long an issued code stays verifiable.
	CodeTTL time.Duration
	// RewardAmount is the fixed point credit for a successful claim.
	RewardAmount int64
	// CountryCode is prepended to 10-digit domestic numbers ("1" for NANP).
	CountryCode string

	// Now is a clock seam for tests; nil means time.Now.
	Now func() time.Time
}

// NewPhoneService constructs a PhoneService with the given policy.
func NewPhoneService(db *gorm.DB, codeTTL time.Duration, rewardAmount int64, countryCode string) *PhoneService {
	return &PhoneService{DB: db, CodeTTL: codeTTL, RewardAmount: rewardAmount, CountryCode: countryCode}
}

func (s *PhoneService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// VerifyResult reports a successful verification plus the advisory reward
// availability flag.
type VerifyResult struct {
	CanClaimReward bool `json:"can_claim_reward"`
}

// ClaimResult reports a successful claim.
type ClaimResult struct {
	RewardAmount  int64               `json:"reward_amount"`
	Entry         *domain.LedgerEntry `json:"entry"`
	ClaimedAt     time.Time           `json:"claimed_at"`
	PhoneLastFour string              `json:"phone_last_four"`
}

// Issue normalizes rawPhone, generates a fresh 6-digit code with a TTL, and
// persists a Pending validation. The code is returned to the caller only via
// the SMS gateway (out of scope here); it is never exposed in API responses.
func (s *PhoneService) Issue(ctx context.Context, accountID, rawPhone string) (*domain.PhoneValidation, error) {
	tr := otel.Tracer("services/PhoneService")
	ctx, span := tr.Start(ctx, "Issue",
		trace.WithAttributes(attribute.String("account.id", accountID)),
	)
	defer span.End()

	phone := loyalty.NormalizePhone(rawPhone, s.CountryCode)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	v, err := repo.CreateValidation(ctx, s.DB, accountID, phone, code, s.now().Add(s.CodeTTL))
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("validation_id", v.ID).
		Str("account_id", accountID).
		Str("phone_last_four", lastFour(phone)).
		Time("expires_at", v.ExpiresAt).
		Msg("phone verification code issued")

	return v, nil
}

// Verify checks the submitted code against the validation record.
//
// Failure order follows the state machine: unknown id, then expiry
// (terminal), then the consumed-code guard, then the code comparison. On a
// match the record becomes Validated and the advisory can-claim flag is
// computed from a plain claimed-set lookup — callers must treat it as a UI
// hint only; Claim re-checks authoritatively.
func (s *PhoneService) Verify(ctx context.Context, validationID, submittedCode string) (*VerifyResult, error) {
	tr := otel.Tracer("services/PhoneService")
	ctx, span := tr.Start(ctx, "Verify",
		trace.WithAttributes(attribute.String("validation.id", validationID)),
	)
	defer span.End()

	var out VerifyResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := repo.GetValidation(ctx, tx, validationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrValidationNotFound
			}
			return err
		}
		if s.now().After(v.ExpiresAt) {
			return ErrCodeExpired
		}
		if v.IsValidated {
			return ErrAlreadyValidated
		}
		if v.Code != submittedCode {
			return ErrCodeMismatch
		}

		if err := repo.MarkValidated(ctx, tx, v.ID); err != nil {
			return err
		}

		claimed, err := repo.IsPhoneClaimed(ctx, tx, v.Phone)
		if err != nil {
			return err
		}
		out.CanClaimReward = !claimed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Claim grants the one-time reward for a validated phone number.
//
// The whole operation is a single transaction:
//
//  1. the validation must exist, be Validated, and not yet Claimed;
//  2. the normalized phone is inserted into the global claimed set — the
//     unique index makes this an atomic check-and-insert, and a duplicate
//     means some other claim (any account, any validation) already won;
//  3. the validation is marked Claimed and the reward credited to the
//     account's balances via the ledger.
//
// Any failure rolls the transaction back, leaving every record exactly as it
// was before the call.
func (s *PhoneService) Claim(ctx context.Context, validationID string) (*ClaimResult, error) {
	tr := otel.Tracer("services/PhoneService")
	ctx, span := tr.Start(ctx, "Claim",
		trace.WithAttributes(attribute.String("validation.id", validationID)),
	)
	defer span.End()

	var out ClaimResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := repo.GetValidation(ctx, tx, validationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrValidationNotFound
			}
			return err
		}
		if !v.IsValidated {
			return ErrNotValidated
		}
		if v.RewardClaimed {
			return ErrAlreadyClaimed
		}

		claimedAt := s.now()

		// The authoritative check-and-insert. Everything before this point
		// was advisory; this either wins the phone number or fails the call.
		if err := repo.InsertClaimedPhone(ctx, tx, v.Phone, v.AccountID, v.ID, claimedAt); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrPhoneAlreadyUsed
			}
			return err
		}

		if err := repo.MarkClaimed(ctx, tx, v.ID, s.RewardAmount, claimedAt); err != nil {
			return err
		}

		ref := v.ID
		if _, err := repo.EnsureAccount(ctx, tx, v.AccountID); err != nil {
			return err
		}
		entry, err := credit(ctx, tx, v.AccountID, s.RewardAmount,
			domain.CategoryEngagement, "Phone verification reward", &ref)
		if err != nil {
			return err
		}

		out = ClaimResult{
			RewardAmount:  s.RewardAmount,
			Entry:         entry,
			ClaimedAt:     claimedAt,
			PhoneLastFour: lastFour(v.Phone),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPhoneAlreadyUsed) {
			phoneClaims.WithLabelValues("phone_already_used").Inc()
		}
		return nil, err
	}

	phoneClaims.WithLabelValues("granted").Inc()
	return &out, nil
}

// PurgeExpired removes Pending validations whose TTL elapsed. Intended to be
// run periodically; correctness never depends on it (expiry is enforced on
// every read).
func (s *PhoneService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := repo.PurgeExpiredValidations(ctx, s.DB, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Debug().Int64("purged", n).Msg("expired phone validations purged")
	}
	return n, nil
}

// generateCode returns a uniformly random, zero-padded 6-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// lastFour masks a normalized phone number down to its last four digits for
// logs and responses.
func lastFour(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
