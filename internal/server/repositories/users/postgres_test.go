package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/intelliworks/intellihome/internal/common"
	"github.com/intelliworks/intellihome/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock, db
}

var userColumns = []string{
	"id", "username", "email", "phone", "first_name", "last_name", "birth_date", "address", "role_id",
	"password_hash", "recovery_question_id", "recovery_answer_hash", "allow_biometric", "token_hash",
	"failed_attempts", "status", "created_at",
}

func newUser() *models.User {
	return &models.User{
		ID:                 "11111111-1111-1111-1111-111111111111",
		Username:           "alice",
		Email:              "alice@example.org",
		Phone:              "5550100",
		FirstName:          "Alice",
		LastName:           "Smith",
		BirthDate:          time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC),
		Address:            "1 Main St",
		RoleID:             models.DefaultRoleID,
		PasswordHash:       []byte("pw-hash"),
		RecoveryQuestionID: 2,
		RecoveryAnswerHash: []byte("answer-hash"),
	}
}

const insertQuery = `^INSERT INTO users \(id, username, email, phone`

func TestCreate_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u := newUser()
	mock.ExpectQuery(insertQuery).
		WithArgs(u.ID, "alice", "alice@example.org", "5550100", "Alice", "Smith", sqlmock.AnyArg(), "1 Main St",
			models.DefaultRoleID, []byte("pw-hash"), 2, []byte("answer-hash"), false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "status", "created_at"}).AddRow(0, "active", created))

	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, got.Status)
	require.Equal(t, created, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_StoresTokenHash(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	u := newUser()
	u.AllowBiometric = true
	u.TokenHash = "abc123"
	mock.ExpectQuery(insertQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), true, "abc123").
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "status", "created_at"}).AddRow(0, "active", time.Now()))

	_, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(insertQuery).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), newUser())
	require.ErrorIs(t, err, ErrDuplicate)

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "email", dup.Field)
}

func TestCreate_UnknownConstraint(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(insertQuery).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"})

	_, err := repo.Create(context.Background(), newUser())
	require.ErrorIs(t, err, ErrDuplicate)
	require.Contains(t, err.Error(), "users_pkey")
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(insertQuery).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), newUser())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetUserByLogin_Found(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	created := time.Now().UTC()
	rows := sqlmock.NewRows(userColumns).AddRow(
		"u-1", "alice", "alice@example.org", "5550100", "Alice", "Smith",
		time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC), "1 Main St", 2,
		[]byte("pw"), 3, []byte("ans"), true, "hash", 1, "active", created,
	)
	mock.ExpectQuery(`WHERE username = \$1 OR email = \$1 OR phone = \$1`).
		WithArgs("alice@example.org").
		WillReturnRows(rows)

	got, err := repo.GetUserByLogin(context.Background(), "alice@example.org")
	require.NoError(t, err)
	require.Equal(t, "u-1", got.ID)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, 1990, got.BirthDate.Year())
	require.Equal(t, "hash", got.TokenHash)
	require.True(t, got.AllowBiometric)
	require.Equal(t, 1, got.FailedAttempts)
	require.Equal(t, models.StatusActive, got.Status)
	require.Equal(t, 3, got.RecoveryQuestionID)
}

func TestGetUserByLogin_NullColumns(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	rows := sqlmock.NewRows(userColumns).AddRow(
		"u-1", "alice", "a@x", "1", "A", "S", nil, "", 2,
		[]byte("pw"), 1, []byte("ans"), false, nil, 0, "locked", time.Now(),
	)
	mock.ExpectQuery(`FROM users`).WithArgs("alice").WillReturnRows(rows)

	got, err := repo.GetUserByLogin(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, got.BirthDate.IsZero())
	require.Empty(t, got.TokenHash)
	require.True(t, got.Locked())
}

func TestGetUserByLogin_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByLogin(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetUserByTokenHash(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	rows := sqlmock.NewRows(userColumns).AddRow(
		"u-2", "bob", "b@x", "2", "Bob", "B", nil, "", 2,
		[]byte("pw"), 1, []byte("ans"), true, "deadbeef", 0, "active", time.Now(),
	)
	mock.ExpectQuery(`WHERE token_hash = \$1`).WithArgs("deadbeef").WillReturnRows(rows)

	got, err := repo.GetUserByTokenHash(context.Background(), "deadbeef")
	require.NoError(t, err)
	require.Equal(t, "bob", got.Username)

	mock.ExpectQuery(`WHERE token_hash = \$1`).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetUserByTokenHash(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTakenFields(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"username", "email", "phone"}).
		AddRow("alice", "other@x", "5550100").
		AddRow("carol", "bob@example.org", "999")
	mock.ExpectQuery(`SELECT username, email, phone FROM users`).
		WithArgs("alice", "bob@example.org", "5550100").
		WillReturnRows(rows)

	got, err := repo.TakenFields(context.Background(), "alice", "bob@example.org", "5550100")
	require.NoError(t, err)
	require.Equal(t, []string{"username", "email", "phone"}, got)
}

func TestTakenFields_None(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT username, email, phone FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"username", "email", "phone"}))

	got, err := repo.TakenFields(context.Background(), "new", "new@x", "1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRecordFailedLogin(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`^UPDATE users SET failed_attempts = failed_attempts \+ 1`).
		WithArgs("u-1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "status"}).AddRow(3, "locked"))

	n, status, err := repo.RecordFailedLogin(context.Background(), "u-1", 3)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, models.StatusLocked, status)
}

func TestRecordFailedLogin_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`^UPDATE users`).WillReturnError(sql.ErrNoRows)

	_, _, err := repo.RecordFailedLogin(context.Background(), "ghost", 3)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestResetFailedLogins(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`^UPDATE users SET failed_attempts = 0 WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ResetFailedLogins(context.Background(), "u-1"))
}

func TestSetTokenHash(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`SET token_hash = \$2, allow_biometric = TRUE`).
		WithArgs("u-1", "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetTokenHash(context.Background(), "u-1", "hash"))

	mock.ExpectExec(`SET token_hash`).
		WithArgs("ghost", "hash").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.SetTokenHash(context.Background(), "ghost", "hash"), common.ErrorNotFound)

	mock.ExpectExec(`SET token_hash`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_token_hash_key"})
	var dup *DuplicateError
	require.ErrorAs(t, repo.SetTokenHash(context.Background(), "u-1", "hash"), &dup)
	require.Equal(t, "token", dup.Field)
}

func TestUpdatePassword(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`SET password_hash = \$2, failed_attempts = 0, status = 'active'`).
		WithArgs("u-1", []byte("new")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePassword(context.Background(), "u-1", []byte("new")))

	mock.ExpectExec(`SET password_hash`).WillReturnError(errors.New("db down"))
	err := repo.UpdatePassword(context.Background(), "u-1", []byte("new"))
	require.ErrorContains(t, err, "db error")
	require.NoError(t, mock.ExpectationsWereMet())
}
