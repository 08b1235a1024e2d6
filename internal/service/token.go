package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/bookgrid/account-service/internal/models"
	"github.com/bookgrid/account-service/internal/repository"
)

// ErrTokenStorage reports that the token store failed in a way the caller
// cannot act on. Detail goes to logs, never to the user.
var ErrTokenStorage = errors.New("token storage failure")

// TokenStore is the persistence surface the token service needs. The real
// implementation is repository.TokenRepository; tests use an in-memory one.
type TokenStore interface {
	Create(ctx context.Context, t *models.VerificationToken) error
	Consume(ctx context.Context, value string, now time.Time) (*models.VerificationToken, error)
	GetByValue(ctx context.Context, value string) (*models.VerificationToken, error)
	DeletePending(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var _ TokenStore = (*repository.TokenRepository)(nil)

type RedeemStatus int

const (
	RedeemValidated RedeemStatus = iota
	RedeemNotFound
	RedeemExpired
	RedeemAlreadyConsumed
)

func (s RedeemStatus) String() string {
	switch s {
	case RedeemValidated:
		return "validated"
	case RedeemNotFound:
		return "not_found"
	case RedeemExpired:
		return "expired"
	case RedeemAlreadyConsumed:
		return "already_consumed"
	default:
		return "unknown"
	}
}

// RedeemOutcome is the result of presenting a token value. Owner is set only
// when Status is RedeemValidated.
type RedeemOutcome struct {
	Status RedeemStatus
	Owner  uuid.UUID
}

// TokenService owns verification-token issuance, redemption and revocation.
type TokenService struct {
	store TokenStore
	now   func() time.Time
}

func NewTokenService(store TokenStore) *TokenService {
	return &TokenService{
		store: store,
		now:   time.Now,
	}
}

const (
	// 32 random bytes, hex encoded: 256 bits of entropy per value.
	tokenValueBytes = 32
	issueMaxRetries = 3
)

// Issue creates a pending token for owner expiring ttl from now. A value
// collision on insert triggers regeneration, capped at issueMaxRetries before
// the failure surfaces as ErrTokenStorage.
func (s *TokenService) Issue(ctx context.Context, owner uuid.UUID, ttl time.Duration) (*models.VerificationToken, error) {
	var issued *models.VerificationToken

	backoff := retry.WithMaxRetries(issueMaxRetries, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		value, err := generateTokenValue()
		if err != nil {
			return fmt.Errorf("generate token value: %w", err)
		}

		now := s.now()
		t := &models.VerificationToken{
			UserID:    owner,
			Token:     value,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}

		if err := s.store.Create(ctx, t); err != nil {
			if errors.Is(err, repository.ErrTokenValueTaken) {
				return retry.RetryableError(err)
			}
			return err
		}

		issued = t
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenStorage, err)
	}

	return issued, nil
}

// Redeem resolves a presented value to exactly one outcome. The store's
// Consume is a single conditional update, so at most one concurrent caller per
// value ever sees RedeemValidated; a miss is classified from the row as it
// stands afterwards. Expired rows are left untouched for the reaper.
func (s *TokenService) Redeem(ctx context.Context, value string) (RedeemOutcome, error) {
	now := s.now()

	t, err := s.store.Consume(ctx, value, now)
	if err == nil {
		return RedeemOutcome{Status: RedeemValidated, Owner: t.UserID}, nil
	}
	if !errors.Is(err, repository.ErrNoPendingToken) {
		return RedeemOutcome{}, fmt.Errorf("%w: %s", ErrTokenStorage, err)
	}

	t, err = s.store.GetByValue(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return RedeemOutcome{Status: RedeemNotFound}, nil
		}
		return RedeemOutcome{}, fmt.Errorf("%w: %s", ErrTokenStorage, err)
	}

	if t.State(now) == models.TokenConsumed {
		return RedeemOutcome{Status: RedeemAlreadyConsumed}, nil
	}
	return RedeemOutcome{Status: RedeemExpired}, nil
}

// RevokeAllFor deletes every pending token owned by owner, used when a fresh
// token supersedes earlier ones. Consumed tokens keep their history.
func (s *TokenService) RevokeAllFor(ctx context.Context, owner uuid.UUID) error {
	if _, err := s.store.DeletePending(ctx, owner); err != nil {
		return fmt.Errorf("%w: %s", ErrTokenStorage, err)
	}
	return nil
}

// Reap removes expired, unconsumed tokens. Idempotent.
func (s *TokenService) Reap(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrTokenStorage, err)
	}
	return n, nil
}

func generateTokenValue() (string, error) {
	b := make([]byte, tokenValueBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
