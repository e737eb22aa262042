package models

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered account and its lifecycle state
type Account struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Verified            bool       `json:"verified"`
	OTP                 *string    `json:"-"`
	OTPExpiresAt        *time.Time `json:"-"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	ResetToken          *string    `json:"-"`
	ResetExpiresAt      *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsLocked reports whether the account is locked at the given instant
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// AccountResponse is the public view of an account
type AccountResponse struct {
	ID        uuid.UUID `json:"id" example:"3fa85f64-5717-4562-b3fc-2c963f66afa6"`
	Email     string    `json:"email" example:"alice@example.com"`
	Verified  bool      `json:"verified" example:"true"`
	CreatedAt time.Time `json:"created_at" example:"2024-03-20T13:00:00Z"`
}

// NewAccountResponse builds the public view of an account
func NewAccountResponse(a *Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Email:     a.Email,
		Verified:  a.Verified,
		CreatedAt: a.CreatedAt,
	}
}
