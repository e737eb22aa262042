package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"gatekeeper/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 20, 13, 0, 0, 0, time.UTC)

var accountColumnNames = []string{
	"id", "email", "password_hash", "verified", "otp", "otp_expires_at",
	"failed_login_attempts", "locked_until", "reset_token", "reset_expires_at",
	"created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*accountRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewAccountRepository(db).(*accountRepository)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func accountRow(id uuid.UUID, email string) *sqlmock.Rows {
	otp := "123456"
	exp := fixedNow.Add(15 * time.Minute)
	return sqlmock.NewRows(accountColumnNames).
		AddRow(id.String(), email, "hash", false, otp, exp, 0, nil, nil, nil, fixedNow, fixedNow)
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(accountRow(id, "alice@example.com"))

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.False(t, got.Verified)
	require.NotNil(t, got.OTP)
	assert.Equal(t, "123456", *got.OTP)
	assert.Nil(t, got.LockedUntil)
	assert.Nil(t, got.ResetToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(accountRow(id, "alice@example.com"))

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetByResetToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM accounts WHERE reset_token = \$1 AND reset_expires_at >= \$2`).
		WithArgs("tok", fixedNow).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByResetToken(context.Background(), "tok", fixedNow)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`INSERT INTO accounts .* RETURNING`).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "hash", fixedNow).
		WillReturnRows(sqlmock.NewRows(accountColumnNames).
			AddRow(id.String(), "alice@example.com", "hash", false, nil, nil, 0, nil, nil, nil, fixedNow, fixedNow))

	got, err := repo.Create(context.Background(), "alice@example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, fixedNow, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Create_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), "alice@example.com", "hash")
	assert.ErrorIs(t, err, repository.ErrEmailExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Create_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO accounts`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), "alice@example.com", "hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrEmailExists)
	assert.Contains(t, err.Error(), "db down")
}

func TestAccountRepository_Update(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()
	verified := true

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE accounts SET verified = $1, otp = NULL, otp_expires_at = NULL, updated_at = $2 WHERE id = $3`)).
		WithArgs(true, fixedNow, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), id, repository.AccountUpdate{Verified: &verified, ClearOTP: true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Update_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()
	hash := "new-hash"

	mock.ExpectExec(`UPDATE accounts SET password_hash = \$1`).
		WithArgs(hash, fixedNow, id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), id, repository.AccountUpdate{PasswordHash: &hash})
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestAccountRepository_Update_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	require.NoError(t, repo.Update(context.Background(), uuid.New(), repository.AccountUpdate{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_IncrementFailedAttempts(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`SET failed_login_attempts = failed_login_attempts \+ 1`).
		WithArgs("alice@example.com", fixedNow, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts"}).AddRow(3))

	n, err := repo.IncrementFailedAttempts(ctx, "alice@example.com", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mock.ExpectQuery(`SET failed_login_attempts = failed_login_attempts \+ 1`).
		WithArgs("ghost@example.com", fixedNow, fixedNow).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = repo.IncrementFailedAttempts(ctx, "ghost@example.com", fixedNow)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_IncrementFailedAttempts_Locked(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE email = \$1 AND \(locked_until IS NULL OR locked_until <= \$3\)`).
		WithArgs("alice@example.com", fixedNow, fixedNow).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.IncrementFailedAttempts(context.Background(), "alice@example.com", fixedNow)
	assert.ErrorIs(t, err, repository.ErrAccountLocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_ClearExpiredSecrets(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET otp = NULL, otp_expires_at = NULL`).
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`SET reset_token = NULL, reset_expires_at = NULL`).
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.ClearExpiredSecrets(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_ClearExpiredSecrets_Rollback(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET otp = NULL`).WithArgs(fixedNow).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`SET reset_token = NULL`).WithArgs(fixedNow).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	_, err := repo.ClearExpiredSecrets(context.Background(), fixedNow)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildAccountUpdate(t *testing.T) {
	id := uuid.New()
	zero := 0
	lock := fixedNow.Add(15 * time.Minute)

	query, args := buildAccountUpdate(id, repository.AccountUpdate{
		FailedLoginAttempts: &zero,
		LockedUntil:         &lock,
		ResetToken:          &repository.ExpiringSecret{Value: "tok", ExpiresAt: lock},
	}, fixedNow)

	assert.Equal(t,
		"UPDATE accounts SET failed_login_attempts = $1, locked_until = $2, reset_token = $3, reset_expires_at = $4, updated_at = $5 WHERE id = $6",
		query)
	assert.Equal(t, []any{0, lock, "tok", lock, fixedNow, id}, args)
}
