package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"gatekeeper/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 20, 13, 0, 0, 0, time.UTC)

func newRepo() *AccountRepository {
	return NewAccountRepository().WithClock(func() time.Time { return fixedNow })
}

func TestAccountRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()

	created, err := repo.Create(ctx, "alice@example.com", "hash")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.Verified)
	assert.Equal(t, fixedNow, created.CreatedAt)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	_, err = repo.Create(ctx, "alice@example.com", "other")
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	_, err = repo.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestAccountRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	created, err := repo.Create(ctx, "alice@example.com", "hash")
	require.NoError(t, err)

	created.Verified = true
	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Verified)
}

func TestAccountRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	a, err := repo.Create(ctx, "alice@example.com", "hash")
	require.NoError(t, err)

	exp := fixedNow.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, a.ID, repository.AccountUpdate{
		ResetToken: &repository.ExpiringSecret{Value: "tok", ExpiresAt: exp},
	}))

	got, err := repo.GetByResetToken(ctx, "tok", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = repo.GetByResetToken(ctx, "tok", exp.Add(time.Second))
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	_, err = repo.GetByResetToken(ctx, "other", fixedNow)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	err = repo.Update(ctx, uuid.New(), repository.AccountUpdate{ClearOTP: true})
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestAccountRepository_IncrementFailedAttempts_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	_, err := repo.Create(ctx, "alice@example.com", "hash")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementFailedAttempts(ctx, "alice@example.com", fixedNow)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 50, got.FailedLoginAttempts)

	_, err = repo.IncrementFailedAttempts(ctx, "ghost@example.com", fixedNow)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestAccountRepository_IncrementFailedAttempts_Locked(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	created, err := repo.Create(ctx, "alice@example.com", "hash")
	require.NoError(t, err)

	until := fixedNow.Add(15 * time.Minute)
	zero := 0
	require.NoError(t, repo.Update(ctx, created.ID, repository.AccountUpdate{
		FailedLoginAttempts: &zero,
		LockedUntil:         &until,
	}))

	_, err = repo.IncrementFailedAttempts(ctx, "alice@example.com", fixedNow)
	assert.ErrorIs(t, err, repository.ErrAccountLocked)

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, got.FailedLoginAttempts)

	n, err := repo.IncrementFailedAttempts(ctx, "alice@example.com", until)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAccountRepository_ClearExpiredSecrets(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()

	expired, err := repo.Create(ctx, "expired@example.com", "hash")
	require.NoError(t, err)
	fresh, err := repo.Create(ctx, "fresh@example.com", "hash")
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, expired.ID, repository.AccountUpdate{
		OTP:        &repository.ExpiringSecret{Value: "111111", ExpiresAt: fixedNow.Add(-time.Minute)},
		ResetToken: &repository.ExpiringSecret{Value: "old", ExpiresAt: fixedNow.Add(-time.Minute)},
	}))
	require.NoError(t, repo.Update(ctx, fresh.ID, repository.AccountUpdate{
		OTP: &repository.ExpiringSecret{Value: "222222", ExpiresAt: fixedNow.Add(time.Minute)},
	}))

	n, err := repo.ClearExpiredSecrets(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := repo.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OTP)
	assert.Nil(t, got.ResetToken)

	got, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OTP)
	assert.Equal(t, "222222", *got.OTP)
}
