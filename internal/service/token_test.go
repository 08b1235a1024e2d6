package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookgrid/account-service/internal/models"
	"github.com/bookgrid/account-service/internal/repository"
)

// memTokenStore implements TokenStore with a mutex-guarded map. Consume holds
// the lock across check and set, mirroring the conditional UPDATE the real
// repository issues.
type memTokenStore struct {
	mu      sync.Mutex
	byValue map[string]*models.VerificationToken

	collisions int   // next N Creates fail with ErrTokenValueTaken
	createErr  error // unconditional Create failure
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{byValue: make(map[string]*models.VerificationToken)}
}

func (m *memTokenStore) Create(_ context.Context, t *models.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if m.collisions > 0 {
		m.collisions--
		return repository.ErrTokenValueTaken
	}
	if _, exists := m.byValue[t.Token]; exists {
		return repository.ErrTokenValueTaken
	}

	t.ID = uuid.New()
	cp := *t
	m.byValue[t.Token] = &cp
	return nil
}

func (m *memTokenStore) Consume(_ context.Context, value string, now time.Time) (*models.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byValue[value]
	if !ok || t.ValidatedAt != nil || !t.ExpiresAt.After(now) {
		return nil, repository.ErrNoPendingToken
	}

	stamped := now
	t.ValidatedAt = &stamped
	cp := *t
	return &cp, nil
}

func (m *memTokenStore) GetByValue(_ context.Context, value string) (*models.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byValue[value]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTokenStore) DeletePending(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for value, t := range m.byValue {
		if t.UserID == userID && t.ValidatedAt == nil {
			delete(m.byValue, value)
			n++
		}
	}
	return n, nil
}

func (m *memTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for value, t := range m.byValue {
		if t.ValidatedAt == nil && !t.ExpiresAt.After(now) {
			delete(m.byValue, value)
			n++
		}
	}
	return n, nil
}

// fakeClock lets tests advance time explicitly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTokenService(store TokenStore, clock *fakeClock) *TokenService {
	svc := NewTokenService(store)
	svc.now = clock.Now
	return svc
}

func TestTokenService_Issue(t *testing.T) {
	store := newMemTokenStore()
	clock := newFakeClock()
	svc := newTestTokenService(store, clock)

	owner := uuid.New()
	token, err := svc.Issue(context.Background(), owner, 15*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, owner, token.UserID)
	assert.Len(t, token.Token, 64) // 32 bytes hex encoded
	assert.Equal(t, clock.Now(), token.CreatedAt)
	assert.Equal(t, clock.Now().Add(15*time.Minute), token.ExpiresAt)
	assert.Nil(t, token.ValidatedAt)
}

func TestTokenService_Issue_UniqueValues(t *testing.T) {
	store := newMemTokenStore()
	svc := newTestTokenService(store, newFakeClock())
	owner := uuid.New()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := svc.Issue(context.Background(), owner, time.Hour)
		require.NoError(t, err)
		require.False(t, seen[token.Token], "duplicate token value issued")
		seen[token.Token] = true
	}
}

func TestTokenService_Issue_RetriesOnCollision(t *testing.T) {
	store := newMemTokenStore()
	store.collisions = 2
	svc := newTestTokenService(store, newFakeClock())

	token, err := svc.Issue(context.Background(), uuid.New(), time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.Zero(t, store.collisions)
}

func TestTokenService_Issue_GivesUpAfterRetryCap(t *testing.T) {
	store := newMemTokenStore()
	store.collisions = 100
	svc := newTestTokenService(store, newFakeClock())

	_, err := svc.Issue(context.Background(), uuid.New(), time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenStorage)
}

func TestTokenService_Issue_StorageFailureIsNotRetried(t *testing.T) {
	store := newMemTokenStore()
	store.createErr = errors.New("connection refused")
	svc := newTestTokenService(store, newFakeClock())

	_, err := svc.Issue(context.Background(), uuid.New(), time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenStorage)
}

func TestTokenService_Redeem(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("pending token validates and carries the owner", func(t *testing.T) {
		store := newMemTokenStore()
		clock := newFakeClock()
		svc := newTestTokenService(store, clock)

		token, err := svc.Issue(ctx, owner, 15*time.Minute)
		require.NoError(t, err)

		outcome, err := svc.Redeem(ctx, token.Token)
		require.NoError(t, err)
		assert.Equal(t, RedeemValidated, outcome.Status)
		assert.Equal(t, owner, outcome.Owner)

		stored, err := store.GetByValue(ctx, token.Token)
		require.NoError(t, err)
		require.NotNil(t, stored.ValidatedAt)
		assert.Equal(t, clock.Now(), *stored.ValidatedAt)
	})

	t.Run("second redemption reports already consumed", func(t *testing.T) {
		store := newMemTokenStore()
		svc := newTestTokenService(store, newFakeClock())

		token, err := svc.Issue(ctx, owner, 15*time.Minute)
		require.NoError(t, err)

		outcome, err := svc.Redeem(ctx, token.Token)
		require.NoError(t, err)
		require.Equal(t, RedeemValidated, outcome.Status)

		outcome, err = svc.Redeem(ctx, token.Token)
		require.NoError(t, err)
		assert.Equal(t, RedeemAlreadyConsumed, outcome.Status)
		assert.Equal(t, uuid.Nil, outcome.Owner)
	})

	t.Run("unknown value reports not found", func(t *testing.T) {
		svc := newTestTokenService(newMemTokenStore(), newFakeClock())

		outcome, err := svc.Redeem(ctx, "deadbeef")
		require.NoError(t, err)
		assert.Equal(t, RedeemNotFound, outcome.Status)
	})

	t.Run("expired token reports expired and never validates", func(t *testing.T) {
		store := newMemTokenStore()
		clock := newFakeClock()
		svc := newTestTokenService(store, clock)

		token, err := svc.Issue(ctx, owner, 15*time.Minute)
		require.NoError(t, err)

		clock.Advance(15 * time.Minute) // expiry is inclusive: now >= expiresAt

		outcome, err := svc.Redeem(ctx, token.Token)
		require.NoError(t, err)
		assert.Equal(t, RedeemExpired, outcome.Status)

		// The row is left untouched for the reaper.
		stored, err := store.GetByValue(ctx, token.Token)
		require.NoError(t, err)
		assert.Nil(t, stored.ValidatedAt)
	})

	t.Run("consumed token stays consumed past expiry", func(t *testing.T) {
		store := newMemTokenStore()
		clock := newFakeClock()
		svc := newTestTokenService(store, clock)

		token, err := svc.Issue(ctx, owner, 15*time.Minute)
		require.NoError(t, err)

		outcome, err := svc.Redeem(ctx, token.Token)
		require.NoError(t, err)
		require.Equal(t, RedeemValidated, outcome.Status)

		clock.Advance(16 * time.Minute)

		outcome, err = svc.Redeem(ctx, token.Token)
		require.NoError(t, err)
		assert.Equal(t, RedeemAlreadyConsumed, outcome.Status)
	})
}

func TestTokenService_Redeem_ExpiredFirstTokenAfterReissue(t *testing.T) {
	ctx := context.Background()
	store := newMemTokenStore()
	clock := newFakeClock()
	svc := newTestTokenService(store, clock)
	owner := uuid.New()

	first, err := svc.Issue(ctx, owner, 15*time.Minute)
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)

	second, err := svc.Issue(ctx, owner, 15*time.Minute)
	require.NoError(t, err)

	outcome, err := svc.Redeem(ctx, first.Token)
	require.NoError(t, err)
	assert.Equal(t, RedeemExpired, outcome.Status)

	outcome, err = svc.Redeem(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, RedeemValidated, outcome.Status)
	assert.Equal(t, owner, outcome.Owner)
}

func TestTokenService_Redeem_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newMemTokenStore()
	svc := newTestTokenService(store, newFakeClock())

	token, err := svc.Issue(ctx, uuid.New(), time.Hour)
	require.NoError(t, err)

	const redeemers = 100
	outcomes := make(chan RedeemStatus, redeemers)
	redeemErrs := make(chan error, redeemers)

	var wg sync.WaitGroup
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := svc.Redeem(ctx, token.Token)
			if err != nil {
				redeemErrs <- err
				return
			}
			outcomes <- outcome.Status
		}()
	}
	wg.Wait()
	close(outcomes)
	close(redeemErrs)

	for err := range redeemErrs {
		t.Fatalf("redeem failed: %v", err)
	}

	var validated, consumed int
	for status := range outcomes {
		switch status {
		case RedeemValidated:
			validated++
		case RedeemAlreadyConsumed:
			consumed++
		default:
			t.Fatalf("unexpected outcome %v", status)
		}
	}

	assert.Equal(t, 1, validated)
	assert.Equal(t, redeemers-1, consumed)
}

func TestTokenService_RevokeAllFor(t *testing.T) {
	ctx := context.Background()
	store := newMemTokenStore()
	clock := newFakeClock()
	svc := newTestTokenService(store, clock)
	owner := uuid.New()
	other := uuid.New()

	consumedToken, err := svc.Issue(ctx, owner, time.Hour)
	require.NoError(t, err)
	outcome, err := svc.Redeem(ctx, consumedToken.Token)
	require.NoError(t, err)
	require.Equal(t, RedeemValidated, outcome.Status)

	pending, err := svc.Issue(ctx, owner, time.Hour)
	require.NoError(t, err)

	otherPending, err := svc.Issue(ctx, other, time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllFor(ctx, owner))

	// The revoked owner's pending token can no longer validate.
	outcome, err = svc.Redeem(ctx, pending.Token)
	require.NoError(t, err)
	assert.NotEqual(t, RedeemValidated, outcome.Status)

	// Consumed history is untouched.
	outcome, err = svc.Redeem(ctx, consumedToken.Token)
	require.NoError(t, err)
	assert.Equal(t, RedeemAlreadyConsumed, outcome.Status)

	// Other owners are unaffected.
	outcome, err = svc.Redeem(ctx, otherPending.Token)
	require.NoError(t, err)
	assert.Equal(t, RedeemValidated, outcome.Status)
}

func TestTokenService_Reap(t *testing.T) {
	ctx := context.Background()
	store := newMemTokenStore()
	clock := newFakeClock()
	svc := newTestTokenService(store, clock)
	owner := uuid.New()

	expired, err := svc.Issue(ctx, owner, 10*time.Minute)
	require.NoError(t, err)

	consumedToken, err := svc.Issue(ctx, owner, 10*time.Minute)
	require.NoError(t, err)
	outcome, err := svc.Redeem(ctx, consumedToken.Token)
	require.NoError(t, err)
	require.Equal(t, RedeemValidated, outcome.Status)

	clock.Advance(11 * time.Minute)

	live, err := svc.Issue(ctx, owner, 10*time.Minute)
	require.NoError(t, err)

	n, err := svc.Reap(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetByValue(ctx, expired.Token)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	// Consumed and live rows survive the reaper.
	_, err = store.GetByValue(ctx, consumedToken.Token)
	assert.NoError(t, err)
	_, err = store.GetByValue(ctx, live.Token)
	assert.NoError(t, err)

	// Reaping again finds nothing.
	n, err = svc.Reap(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
