// Package account implements the account lifecycle: registration, OTP
// verification, login with lockout and password reset.
package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"gatekeeper/internal/auth"
	"gatekeeper/internal/config"
	"gatekeeper/internal/email"
	"gatekeeper/internal/metrics"
	"gatekeeper/internal/models"
	"gatekeeper/internal/repository"
	"gatekeeper/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/oops"
)

// Messages returned by successful operations
const (
	MsgRegistered         = "Registration successful, verify your email"
	MsgVerified           = "Account successfully verified"
	MsgVerificationResent = "If the account exists and is not yet verified, a new verification code has been sent"
	MsgResetSent          = "Password reset email sent"
	MsgResetRequested     = "If the account exists, a password reset email has been sent"
	MsgPasswordReset      = "Password successfully reset"
)

// dummyPassword is hashed once and compared against when an email is unknown
const dummyPassword = "gatekeeper-timing-equalizer"

// Config holds the rules the service enforces
type Config struct {
	Lifecycle config.LifecycleConfig
	TokenTTL  time.Duration
}

// ConfigFrom extracts the service configuration from the application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{Lifecycle: cfg.Lifecycle, TokenTTL: cfg.Auth.TokenTTL}
}

// Option configures a Service
type Option func(*Service)

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSecretGenerators replaces the OTP and reset token generators
func WithSecretGenerators(otp, resetToken func() (string, error)) Option {
	return func(s *Service) {
		s.generateOTP = otp
		s.generateResetToken = resetToken
	}
}

// Service drives account state transitions. It holds no mutable per-account
// state; all coordination goes through the repository.
type Service struct {
	repo     repository.AccountRepository
	notifier email.Notifier
	hasher   auth.Hasher
	issuer   auth.TokenIssuer
	cfg      Config
	logger   zerolog.Logger

	now                func() time.Time
	generateOTP        func() (string, error)
	generateResetToken func() (string, error)

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new account lifecycle service
func NewService(
	repo repository.AccountRepository,
	notifier email.Notifier,
	hasher auth.Hasher,
	issuer auth.TokenIssuer,
	cfg Config,
	logger zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		repo:               repo,
		notifier:           notifier,
		hasher:             hasher,
		issuer:             issuer,
		cfg:                cfg,
		logger:             logger.With().Str("component", "account").Logger(),
		now:                time.Now,
		generateOTP:        auth.GenerateOTP,
		generateResetToken: auth.GenerateResetToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unverified account and sends it a verification code
func (s *Service) Register(ctx context.Context, emailAddr, password string) (string, error) {
	const op = "register"
	emailAddr = validation.NormalizeEmail(emailAddr)

	if !validation.ValidateEmail(emailAddr) {
		return s.reject(op, ErrInvalidInput)
	}
	if validation.PasswordStrength(password) < s.cfg.Lifecycle.RegisterMinStrength {
		return s.reject(op, ErrWeakCredential)
	}
	if len(password) > auth.MaxPasswordBytes {
		return s.reject(op, errPasswordTooLong)
	}

	_, err := s.repo.GetByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		return s.reject(op, ErrAlreadyExists)
	case !errors.Is(err, repository.ErrAccountNotFound):
		return s.fail(op, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return s.fail(op, err)
	}

	acc, err := s.repo.Create(ctx, emailAddr, hash)
	if errors.Is(err, repository.ErrEmailExists) {
		return s.reject(op, ErrAlreadyExists)
	}
	if err != nil {
		return s.fail(op, err)
	}

	otp, err := s.issueOTP(ctx, acc.ID)
	if err != nil {
		return s.fail(op, err)
	}

	s.logger.Info().Str("account_id", acc.ID.String()).Msg("account registered")
	if err := s.deliver(op, "otp", func() error { return s.notifier.SendOTP(ctx, emailAddr, otp) }); err != nil {
		return "", err
	}

	metrics.RecordOperation(op, metrics.OutcomeSuccess)
	return MsgRegistered, nil
}

// VerifyAccount marks the account verified when the code matches and has not expired
func (s *Service) VerifyAccount(ctx context.Context, emailAddr, otp string) (string, error) {
	const op = "verify"
	emailAddr = validation.NormalizeEmail(emailAddr)

	if !validation.ValidateEmail(emailAddr) {
		return s.reject(op, ErrInvalidInput)
	}

	acc, err := s.repo.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return s.reject(op, ErrInvalidOrExpiredCode)
	}
	if err != nil {
		return s.fail(op, err)
	}

	if acc.OTP == nil || acc.OTPExpiresAt == nil ||
		subtle.ConstantTimeCompare([]byte(*acc.OTP), []byte(otp)) != 1 ||
		!s.now().Before(*acc.OTPExpiresAt) {
		return s.reject(op, ErrInvalidOrExpiredCode)
	}

	verified := true
	if err := s.repo.Update(ctx, acc.ID, repository.AccountUpdate{Verified: &verified, ClearOTP: true}); err != nil {
		return s.fail(op, err)
	}

	s.logger.Info().Str("account_id", acc.ID.String()).Msg("account verified")
	metrics.RecordOperation(op, metrics.OutcomeSuccess)
	return MsgVerified, nil
}

// ResendVerification replaces the verification code of an unverified account.
// Unknown and already verified addresses get the same answer without side effects.
func (s *Service) ResendVerification(ctx context.Context, emailAddr string) (string, error) {
	const op = "resend_verification"
	emailAddr = validation.NormalizeEmail(emailAddr)

	if !validation.ValidateEmail(emailAddr) {
		return s.reject(op, ErrInvalidInput)
	}

	acc, err := s.repo.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrAccountNotFound) {
		metrics.RecordOperation(op, metrics.OutcomeSuccess)
		return MsgVerificationResent, nil
	}
	if err != nil {
		return s.fail(op, err)
	}
	if acc.Verified {
		metrics.RecordOperation(op, metrics.OutcomeSuccess)
		return MsgVerificationResent, nil
	}

	otp, err := s.issueOTP(ctx, acc.ID)
	if err != nil {
		return s.fail(op, err)
	}
	if err := s.deliver(op, "otp", func() error { return s.notifier.SendOTP(ctx, emailAddr, otp) }); err != nil {
		return "", err
	}

	metrics.RecordOperation(op, metrics.OutcomeSuccess)
	return MsgVerificationResent, nil
}

// Login authenticates credentials and returns a signed token.
// Checks run in a fixed order: lockout, then credential, then verification.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (string, error) {
	const op = "login"
	emailAddr = validation.NormalizeEmail(emailAddr)

	if !validation.ValidateEmail(emailAddr) {
		s.equalizeTiming(password)
		return s.reject(op, ErrInvalidCredentials)
	}

	acc, err := s.repo.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrAccountNotFound) {
		s.equalizeTiming(password)
		return s.reject(op, ErrInvalidCredentials)
	}
	if err != nil {
		return s.fail(op, err)
	}

	now := s.now()
	if acc.IsLocked(now) {
		return s.reject(op, &AccountLockedError{RemainingMinutes: remainingMinutes(*acc.LockedUntil, now)})
	}

	ok, err := s.hasher.Verify(password, acc.PasswordHash)
	if err != nil {
		return s.fail(op, err)
	}
	if !ok {
		return s.recordFailure(ctx, acc, now)
	}

	if !acc.Verified {
		return s.reject(op, ErrNotVerified)
	}

	if acc.FailedLoginAttempts != 0 || acc.LockedUntil != nil {
		zero := 0
		if err := s.repo.Update(ctx, acc.ID, repository.AccountUpdate{
			FailedLoginAttempts: &zero,
			ClearLockedUntil:    true,
		}); err != nil {
			return s.fail(op, err)
		}
	}

	token, err := s.issuer.Sign(auth.NewAccountClaims(acc.ID), s.cfg.TokenTTL)
	if err != nil {
		return s.fail(op, err)
	}

	s.logger.Info().Str("account_id", acc.ID.String()).Msg("login succeeded")
	metrics.RecordOperation(op, metrics.OutcomeSuccess)
	return token, nil
}

// recordFailure bumps the failure counter and locks the account once the threshold is reached
func (s *Service) recordFailure(ctx context.Context, acc *models.Account, now time.Time) (string, error) {
	const op = "login"

	attempts, err := s.repo.IncrementFailedAttempts(ctx, acc.Email, now)
	if errors.Is(err, repository.ErrAccountLocked) {
		return s.rejectLocked(ctx, acc.ID, now)
	}
	if err != nil {
		return s.fail(op, err)
	}
	if attempts < s.cfg.Lifecycle.MaxFailedAttempts {
		return s.reject(op, ErrInvalidCredentials)
	}

	zero := 0
	until := now.Add(s.cfg.Lifecycle.LockoutDuration)
	if err := s.repo.Update(ctx, acc.ID, repository.AccountUpdate{
		FailedLoginAttempts: &zero,
		LockedUntil:         &until,
	}); err != nil {
		return s.fail(op, err)
	}

	s.logger.Warn().
		Str("account_id", acc.ID.String()).
		Int("attempts", attempts).
		Time("locked_until", until).
		Msg("account locked after repeated failed logins")
	metrics.RecordLockout()
	return s.reject(op, &AccountLockedError{RemainingMinutes: remainingMinutes(until, now)})
}

// rejectLocked reports a lock placed by a concurrent login after acc was read
func (s *Service) rejectLocked(ctx context.Context, id uuid.UUID, now time.Time) (string, error) {
	const op = "login"

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.fail(op, err)
	}
	if !current.IsLocked(now) {
		return s.reject(op, ErrInvalidCredentials)
	}
	return s.reject(op, &AccountLockedError{RemainingMinutes: remainingMinutes(*current.LockedUntil, now)})
}

// RequestPasswordReset issues a reset token and mails the reset link
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) (string, error) {
	const op = "request_password_reset"
	emailAddr = validation.NormalizeEmail(emailAddr)

	if !validation.ValidateEmail(emailAddr) {
		return s.reject(op, ErrInvalidInput)
	}

	acc, err := s.repo.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrAccountNotFound) {
		if s.cfg.Lifecycle.ConcealUnknownReset {
			metrics.RecordOperation(op, metrics.OutcomeSuccess)
			return MsgResetRequested, nil
		}
		return s.reject(op, ErrNotFound)
	}
	if err != nil {
		return s.fail(op, err)
	}

	token, err := s.generateResetToken()
	if err != nil {
		return s.fail(op, err)
	}
	if err := s.repo.Update(ctx, acc.ID, repository.AccountUpdate{
		ResetToken: &repository.ExpiringSecret{Value: token, ExpiresAt: s.now().Add(s.cfg.Lifecycle.ResetTokenTTL)},
	}); err != nil {
		return s.fail(op, err)
	}

	s.logger.Info().Str("account_id", acc.ID.String()).Msg("password reset requested")
	if err := s.deliver(op, "reset", func() error { return s.notifier.SendResetLink(ctx, emailAddr, token) }); err != nil {
		return "", err
	}

	metrics.RecordOperation(op, metrics.OutcomeSuccess)
	if s.cfg.Lifecycle.ConcealUnknownReset {
		return MsgResetRequested, nil
	}
	return MsgResetSent, nil
}

// ResetPassword replaces the password of the account holding a live reset token
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	const op = "reset_password"

	if validation.PasswordStrength(newPassword) < s.cfg.Lifecycle.ResetMinStrength {
		return s.reject(op, ErrWeakCredential)
	}
	if len(newPassword) > auth.MaxPasswordBytes {
		return s.reject(op, errPasswordTooLong)
	}
	if token == "" {
		return s.reject(op, ErrInvalidOrExpiredToken)
	}

	acc, err := s.repo.GetByResetToken(ctx, token, s.now())
	if errors.Is(err, repository.ErrAccountNotFound) {
		return s.reject(op, ErrInvalidOrExpiredToken)
	}
	if err != nil {
		return s.fail(op, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.fail(op, err)
	}
	if err := s.repo.Update(ctx, acc.ID, repository.AccountUpdate{
		PasswordHash:    &hash,
		ClearResetToken: true,
	}); err != nil {
		return s.fail(op, err)
	}

	s.logger.Info().Str("account_id", acc.ID.String()).Msg("password reset")
	metrics.RecordOperation(op, metrics.OutcomeSuccess)
	return MsgPasswordReset, nil
}

// GetAccount returns the account with the given id
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	acc, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("operation", "get_account").Wrap(err)
	}
	return acc, nil
}

// SweepExpired clears OTP and reset secrets whose expiry has elapsed
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.ClearExpiredSecrets(ctx, s.now())
	if err != nil {
		return 0, oops.Code("ACCOUNT_SWEEP_FAILED").With("operation", "sweep_expired").Wrap(err)
	}
	metrics.RecordSweep(n)
	return n, nil
}

// issueOTP generates a fresh code and persists it with its expiry
func (s *Service) issueOTP(ctx context.Context, id uuid.UUID) (string, error) {
	otp, err := s.generateOTP()
	if err != nil {
		return "", err
	}
	err = s.repo.Update(ctx, id, repository.AccountUpdate{
		OTP: &repository.ExpiringSecret{Value: otp, ExpiresAt: s.now().Add(s.cfg.Lifecycle.OTPTTL)},
	})
	if err != nil {
		return "", err
	}
	return otp, nil
}

// deliver runs send under the configured delivery policy. State has already been
// persisted, so a best-effort failure leaves a valid account the user can resend for.
func (s *Service) deliver(op, kind string, send func() error) error {
	err := send()
	if err == nil {
		return nil
	}

	metrics.RecordDeliveryFailure(kind)
	s.logger.Error().Err(err).Str("operation", op).Str("kind", kind).Msg("email delivery failed")

	if s.cfg.Lifecycle.DeliveryPolicy == config.DeliveryStrict {
		metrics.RecordOperation(op, metrics.OutcomeError)
		return oops.Code("ACCOUNT_DELIVERY_FAILED").With("operation", op).Wrap(errors.Join(ErrDeliveryFailed, err))
	}
	return nil
}

// equalizeTiming performs a hash comparison so unknown emails cost as much as wrong passwords
func (s *Service) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		if hash, err := s.hasher.Hash(dummyPassword); err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func (s *Service) reject(op string, err error) (string, error) {
	metrics.RecordOperation(op, metrics.OutcomeRejected)
	return "", err
}

func (s *Service) fail(op string, err error) (string, error) {
	metrics.RecordOperation(op, metrics.OutcomeError)
	return "", oops.
		Code("ACCOUNT_"+strings.ToUpper(op)+"_FAILED").
		With("operation", op).
		Wrap(err)
}

// remainingMinutes rounds the time left on a lock up to whole minutes
func remainingMinutes(until, now time.Time) int {
	return int(math.Ceil(until.Sub(now).Minutes()))
}
