// Package memory provides an in-process AccountRepository used by tests and
// local runs without PostgreSQL
package memory

import (
	"context"
	"sync"
	"time"

	"gatekeeper/internal/models"
	"gatekeeper/internal/repository"

	"github.com/google/uuid"
)

// AccountRepository stores accounts in a map guarded by a mutex
type AccountRepository struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.Account
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates an empty repository
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[uuid.UUID]*models.Account),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

// WithClock sets the clock used for created/updated timestamps
func (r *AccountRepository) WithClock(now func() time.Time) *AccountRepository {
	r.now = now
	return r
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return clone(a), nil
}

func (r *AccountRepository) GetByResetToken(_ context.Context, token string, notExpiredBefore time.Time) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.ResetToken != nil && *a.ResetToken == token &&
			a.ResetExpiresAt != nil && !a.ResetExpiresAt.Before(notExpiredBefore) {
			return clone(a), nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r *AccountRepository) Create(_ context.Context, email, passwordHash string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, repository.ErrEmailExists
	}

	now := r.now()
	a := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[a.ID] = a
	r.byEmail[email] = a.ID
	return clone(a), nil
}

func (r *AccountRepository) Update(_ context.Context, id uuid.UUID, update repository.AccountUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if update.IsEmpty() {
		return nil
	}
	update.Apply(a)
	a.UpdatedAt = r.now()
	return nil
}

func (r *AccountRepository) IncrementFailedAttempts(_ context.Context, email string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	a := r.byID[id]
	if a.IsLocked(now) {
		return 0, repository.ErrAccountLocked
	}
	a.FailedLoginAttempts++
	a.UpdatedAt = r.now()
	return a.FailedLoginAttempts, nil
}

func (r *AccountRepository) ClearExpiredSecrets(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, a := range r.byID {
		if !a.Verified && a.OTPExpiresAt != nil && !a.OTPExpiresAt.After(now) {
			a.OTP, a.OTPExpiresAt = nil, nil
			a.UpdatedAt = now
			n++
		}
		if a.ResetExpiresAt != nil && a.ResetExpiresAt.Before(now) {
			a.ResetToken, a.ResetExpiresAt = nil, nil
			a.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func clone(a *models.Account) *models.Account {
	c := *a
	c.OTP = clonePtr(a.OTP)
	c.OTPExpiresAt = clonePtr(a.OTPExpiresAt)
	c.LockedUntil = clonePtr(a.LockedUntil)
	c.ResetToken = clonePtr(a.ResetToken)
	c.ResetExpiresAt = clonePtr(a.ResetExpiresAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
