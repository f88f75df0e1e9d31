// Phone verification HTTP handlers.
//
// This file exposes the three-step verification reward flow:
//   - POST /phone/verifications             (issue a code for a phone number)
//   - POST /phone/verifications/{id}/verify (submit the code)
//   - POST /phone/verifications/{id}/claim  (claim the one-time reward)
//
// Responses never carry the verification code or the full phone number; the
// code travels only over the SMS channel and the phone is reduced to its last
// four digits.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
	"github.com/freshplate/go-loyalty-backend/internal/services"
)

//
// DTOs
//

// IssueVerificationRequest is the JSON payload for requesting a code.
type IssueVerificationRequest struct {
	// AccountID is the account the eventual reward would be credited to.
	AccountID string `json:"account_id" binding:"required"`
	// Phone is the raw phone number; it is normalized server-side.
	Phone string `json:"phone" binding:"required"`
}

// IssueVerificationResponse identifies the created validation. The code is
// deliberately absent.
type IssueVerificationResponse struct {
	ValidationID  string    `json:"validation_id"`
	AccountID     string    `json:"account_id"`
	PhoneLastFour string    `json:"phone_last_four"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// VerifyRequest is the JSON payload for submitting a code.
type VerifyRequest struct {
	// Code is the 6-digit code delivered over SMS.
	Code string `json:"code" binding:"required"`
}

// VerifyResponse reports a successful verification. CanClaimReward is
// advisory: the claim endpoint re-checks authoritatively.
type VerifyResponse struct {
	Validated      bool `json:"validated"`
	CanClaimReward bool `json:"can_claim_reward"`
}

// ClaimResponse reports a granted reward.
type ClaimResponse struct {
	RewardAmount  int64               `json:"reward_amount"`
	Entry         *domain.LedgerEntry `json:"entry"`
	ClaimedAt     time.Time           `json:"claimed_at"`
	PhoneLastFour string              `json:"phone_last_four"`
}

// validationID extracts and validates the :id path parameter (a UUID).
func validationID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "validation id must be a UUID")
		return "", false
	}
	return id, true
}

//
// Handlers
//

// IssueVerification normalizes the phone number, creates a Pending validation
// with a fresh code and TTL, and returns the validation identity. Delivery of
// the code over SMS happens out of band.
func (h *Handlers) IssueVerification(c *gin.Context) {
	var req IssueVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account_id and phone required")
		return
	}

	v, err := h.phoneSvc.Issue(c.Request.Context(), strings.TrimSpace(req.AccountID), req.Phone)
	if err != nil {
		switch err {
		case services.ErrInvalidPhone:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone number is not valid")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	last := v.Phone
	if len(last) > 4 {
		last = last[len(last)-4:]
	}
	ok(c, http.StatusCreated, IssueVerificationResponse{
		ValidationID:  v.ID,
		AccountID:     v.AccountID,
		PhoneLastFour: last,
		ExpiresAt:     v.ExpiresAt,
	})
}

// Verify checks the submitted code against the validation record. Expired
// codes answer 410 Gone (terminal), consumed or mismatched codes answer 409
// and 400 respectively.
func (h *Handlers) Verify(c *gin.Context) {
	id, okID := validationID(c)
	if !okID {
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code required")
		return
	}

	res, err := h.phoneSvc.Verify(c.Request.Context(), id, strings.TrimSpace(req.Code))
	if err != nil {
		switch err {
		case services.ErrValidationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "validation not found")
		case services.ErrCodeExpired:
			fail(c, http.StatusGone, ErrCodeCodeExpired, "verification code expired")
		case services.ErrAlreadyValidated:
			fail(c, http.StatusConflict, ErrCodeAlreadyValidated, "code already used")
		case services.ErrCodeMismatch:
			fail(c, http.StatusBadRequest, ErrCodeCodeMismatch, "incorrect verification code")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, VerifyResponse{Validated: true, CanClaimReward: res.CanClaimReward})
}

// Claim grants the one-time reward for a validated phone number and credits
// the points. A phone that already produced a reward anywhere answers 409
// with phone_already_used and nothing is credited.
func (h *Handlers) Claim(c *gin.Context) {
	id, okID := validationID(c)
	if !okID {
		return
	}

	res, err := h.phoneSvc.Claim(c.Request.Context(), id)
	if err != nil {
		switch err {
		case services.ErrValidationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "validation not found")
		case services.ErrNotValidated:
			fail(c, http.StatusConflict, ErrCodeNotValidated, "phone not verified yet")
		case services.ErrAlreadyClaimed:
			fail(c, http.StatusConflict, ErrCodeAlreadyClaimed, "reward already claimed for this validation")
		case services.ErrPhoneAlreadyUsed:
			fail(c, http.StatusConflict, ErrCodePhoneAlreadyUsed, "this phone number has already been used for a reward")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, ClaimResponse{
		RewardAmount:  res.RewardAmount,
		Entry:         res.Entry,
		ClaimedAt:     res.ClaimedAt,
		PhoneLastFour: res.PhoneLastFour,
	})
}
