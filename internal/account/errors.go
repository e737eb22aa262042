package account

import (
	"errors"
	"fmt"

	"gatekeeper/internal/auth"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrWeakCredential        = errors.New("password is too weak")
	ErrAlreadyExists         = errors.New("an account with this email already exists")
	ErrInvalidOrExpiredCode  = errors.New("invalid or expired OTP")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountLocked         = errors.New("account locked")
	ErrNotVerified           = errors.New("your account has not been verified, please check your email")
	ErrNotFound              = errors.New("user not found")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrDeliveryFailed        = errors.New("failed to deliver email")
)

// errPasswordTooLong is an ErrInvalidInput for passwords the hasher cannot accept
var errPasswordTooLong = fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, auth.MaxPasswordBytes)

// AccountLockedError reports a lockout together with the whole minutes left
type AccountLockedError struct {
	RemainingMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked due to too many failed login attempts, please try again in %d minutes", e.RemainingMinutes)
}

// Is makes errors.Is(err, ErrAccountLocked) match
func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
