package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenState is the lifecycle state of a verification token. It is derived
// from the timestamps on read and never stored.
type TokenState int

const (
	TokenPending TokenState = iota
	TokenExpired
	TokenConsumed
)

func (s TokenState) String() string {
	switch s {
	case TokenPending:
		return "pending"
	case TokenExpired:
		return "expired"
	case TokenConsumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// VerificationToken is a single-use, time-bounded secret bound to one user.
// Token holds the redeemable value and is unique among live tokens.
type VerificationToken struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Token       string     `json:"token"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
}

// State reports the token's state at the given instant. Consumption is
// terminal: a validated token stays consumed even past its expiry. Expiry is
// compared as now >= ExpiresAt.
func (t *VerificationToken) State(now time.Time) TokenState {
	if t.ValidatedAt != nil {
		return TokenConsumed
	}
	if !now.Before(t.ExpiresAt) {
		return TokenExpired
	}
	return TokenPending
}
