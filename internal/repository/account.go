package repository

import (
	"context"
	"time"

	"gatekeeper/internal/models"

	"github.com/google/uuid"
)

// AccountRepository defines the persistence operations of the account lifecycle
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// GetByResetToken returns the account holding token whose reset expiry is not before notExpiredBefore
	GetByResetToken(ctx context.Context, token string, notExpiredBefore time.Time) (*models.Account, error)
	// Create inserts an unverified account. Returns ErrEmailExists on a duplicate email.
	Create(ctx context.Context, email, passwordHash string) (*models.Account, error)
	Update(ctx context.Context, id uuid.UUID, update AccountUpdate) error
	// IncrementFailedAttempts atomically bumps the failure counter and returns the new value.
	// Returns ErrAccountLocked and leaves the counter alone while the account is locked at now.
	IncrementFailedAttempts(ctx context.Context, email string, now time.Time) (int, error)
	// ClearExpiredSecrets nulls elapsed OTP and reset fields, returning the number of rows touched
	ClearExpiredSecrets(ctx context.Context, now time.Time) (int64, error)
}

// ExpiringSecret is a one-time secret together with its expiry
type ExpiringSecret struct {
	Value     string
	ExpiresAt time.Time
}

// AccountUpdate describes a partial update. Nil pointers and false Clear flags leave a column unchanged.
// A Clear flag wins over the matching set field.
type AccountUpdate struct {
	PasswordHash        *string
	Verified            *bool
	OTP                 *ExpiringSecret
	ClearOTP            bool
	FailedLoginAttempts *int
	LockedUntil         *time.Time
	ClearLockedUntil    bool
	ResetToken          *ExpiringSecret
	ClearResetToken     bool
}

// IsEmpty reports whether the update changes nothing
func (u AccountUpdate) IsEmpty() bool {
	return u.PasswordHash == nil && u.Verified == nil && u.OTP == nil && !u.ClearOTP &&
		u.FailedLoginAttempts == nil && u.LockedUntil == nil && !u.ClearLockedUntil &&
		u.ResetToken == nil && !u.ClearResetToken
}

// Apply writes the update onto an in-memory account
func (u AccountUpdate) Apply(a *models.Account) {
	if u.PasswordHash != nil {
		a.PasswordHash = *u.PasswordHash
	}
	if u.Verified != nil {
		a.Verified = *u.Verified
	}
	switch {
	case u.ClearOTP:
		a.OTP, a.OTPExpiresAt = nil, nil
	case u.OTP != nil:
		otp, exp := u.OTP.Value, u.OTP.ExpiresAt
		a.OTP, a.OTPExpiresAt = &otp, &exp
	}
	if u.FailedLoginAttempts != nil {
		a.FailedLoginAttempts = *u.FailedLoginAttempts
	}
	switch {
	case u.ClearLockedUntil:
		a.LockedUntil = nil
	case u.LockedUntil != nil:
		until := *u.LockedUntil
		a.LockedUntil = &until
	}
	switch {
	case u.ClearResetToken:
		a.ResetToken, a.ResetExpiresAt = nil, nil
	case u.ResetToken != nil:
		token, exp := u.ResetToken.Value, u.ResetToken.ExpiresAt
		a.ResetToken, a.ResetExpiresAt = &token, &exp
	}
}
