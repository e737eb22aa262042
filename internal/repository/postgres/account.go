package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatekeeper/internal/models"
	"gatekeeper/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

const accountColumns = `id, email, password_hash, verified, otp, otp_expires_at,
		failed_login_attempts, locked_until, reset_token, reset_expires_at,
		created_at, updated_at`

type accountRepository struct {
	repository.BaseRepository
	now func() time.Time
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &accountRepository{
		BaseRepository: repository.NewBaseRepository(db),
		now:            time.Now,
	}
}

func scanAccount(row interface{ Scan(dest ...any) error }) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Verified,
		&a.OTP,
		&a.OTPExpiresAt,
		&a.FailedLoginAttempts,
		&a.LockedUntil,
		&a.ResetToken,
		&a.ResetExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.DB().QueryRowContext(ctx, query, email))
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.DB().QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetByResetToken(ctx context.Context, token string, notExpiredBefore time.Time) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE reset_token = $1 AND reset_expires_at >= $2`
	return scanAccount(r.DB().QueryRowContext(ctx, query, token, notExpiredBefore))
}

func (r *accountRepository) Create(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, email, password_hash, verified, failed_login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, false, 0, $4, $4)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.DB().QueryRowContext(ctx, query, uuid.New(), email, passwordHash, r.now()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrEmailExists
		}
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) Update(ctx context.Context, id uuid.UUID, update repository.AccountUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	query, args := buildAccountUpdate(id, update, r.now())
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) IncrementFailedAttempts(ctx context.Context, email string, now time.Time) (int, error) {
	query := `
		UPDATE accounts
		SET failed_login_attempts = failed_login_attempts + 1, updated_at = $2
		WHERE email = $1 AND (locked_until IS NULL OR locked_until <= $3)
		RETURNING failed_login_attempts`

	var attempts int
	err := r.DB().QueryRowContext(ctx, query, email, r.now(), now).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, r.missingOrLocked(ctx, email)
	}
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// missingOrLocked tells apart the two reasons a conditional increment matched no row
func (r *accountRepository) missingOrLocked(ctx context.Context, email string) error {
	var exists bool
	err := r.DB().QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrAccountNotFound
	}
	return repository.ErrAccountLocked
}

func (r *accountRepository) ClearExpiredSecrets(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := r.Transaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		for _, query := range []string{
			`UPDATE accounts SET otp = NULL, otp_expires_at = NULL, updated_at = $1
				WHERE verified = false AND otp_expires_at IS NOT NULL AND otp_expires_at <= $1`,
			`UPDATE accounts SET reset_token = NULL, reset_expires_at = NULL, updated_at = $1
				WHERE reset_expires_at IS NOT NULL AND reset_expires_at < $1`,
		} {
			result, err := tx.ExecContext(ctx, query, now)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// buildAccountUpdate renders the SET clause for the fields present in update
func buildAccountUpdate(id uuid.UUID, update repository.AccountUpdate, now time.Time) (string, []any) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.PasswordHash != nil {
		set("password_hash", *update.PasswordHash)
	}
	if update.Verified != nil {
		set("verified", *update.Verified)
	}
	switch {
	case update.ClearOTP:
		sets = append(sets, "otp = NULL", "otp_expires_at = NULL")
	case update.OTP != nil:
		set("otp", update.OTP.Value)
		set("otp_expires_at", update.OTP.ExpiresAt)
	}
	if update.FailedLoginAttempts != nil {
		set("failed_login_attempts", *update.FailedLoginAttempts)
	}
	switch {
	case update.ClearLockedUntil:
		sets = append(sets, "locked_until = NULL")
	case update.LockedUntil != nil:
		set("locked_until", *update.LockedUntil)
	}
	switch {
	case update.ClearResetToken:
		sets = append(sets, "reset_token = NULL", "reset_expires_at = NULL")
	case update.ResetToken != nil:
		set("reset_token", update.ResetToken.Value)
		set("reset_expires_at", update.ResetToken.ExpiresAt)
	}
	set("updated_at", now)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgerrcode.UniqueViolation
}
