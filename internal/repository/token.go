package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookgrid/account-service/internal/models"
)

var (
	ErrTokenNotFound   = errors.New("verification token not found")
	ErrTokenValueTaken = errors.New("verification token value already taken")
	ErrNoPendingToken  = errors.New("no pending verification token for value")
)

type TokenRepository struct {
	db DB
}

func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a token row. The unique constraint on the token column is the
// authority on value uniqueness; a collision comes back as ErrTokenValueTaken
// so the caller can regenerate.
func (r *TokenRepository) Create(ctx context.Context, t *models.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (user_id, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query, t.UserID, t.Token, t.CreatedAt, t.ExpiresAt).
		Scan(&t.ID)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate") {
			return ErrTokenValueTaken
		}
		return err
	}

	return nil
}

// Consume atomically stamps validated_at on the pending, unexpired token with
// the given value. The WHERE clause is the whole point: under concurrent
// redemption exactly one caller's UPDATE matches a row, everyone else gets
// ErrNoPendingToken and must classify via GetByValue.
func (r *TokenRepository) Consume(ctx context.Context, value string, now time.Time) (*models.VerificationToken, error) {
	query := `
		UPDATE verification_tokens
		SET validated_at = $2
		WHERE token = $1 AND validated_at IS NULL AND expires_at > $2
		RETURNING id, user_id, token, created_at, expires_at, validated_at
	`

	t := &models.VerificationToken{}
	err := r.db.QueryRow(ctx, query, value, now).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.CreatedAt,
		&t.ExpiresAt,
		&t.ValidatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPendingToken
		}
		return nil, err
	}

	return t, nil
}

// GetByValue returns the row as stored, without interpreting its state.
func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*models.VerificationToken, error) {
	query := `
		SELECT id, user_id, token, created_at, expires_at, validated_at
		FROM verification_tokens
		WHERE token = $1
	`

	t := &models.VerificationToken{}
	err := r.db.QueryRow(ctx, query, value).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.CreatedAt,
		&t.ExpiresAt,
		&t.ValidatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return t, nil
}

// DeletePending removes every unconsumed token owned by userID. Consumed rows
// stay for audit.
func (r *TokenRepository) DeletePending(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE user_id = $1 AND validated_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

// DeleteExpired reaps expired, unconsumed rows. Safe to run concurrently with
// redemption: any row it matches can no longer satisfy Consume's expiry guard.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE expires_at < $1 AND validated_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}
