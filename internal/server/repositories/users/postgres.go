package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/intelliworks/intellihome/internal/common"
	"github.com/intelliworks/intellihome/internal/dbx"
	"github.com/intelliworks/intellihome/internal/server/models"
)

const uniqueViolation = "23505"

// constraintFields maps unique constraints of the users table to the
// registration field they protect.
var constraintFields = map[string]string{
	"users_username_key":   "username",
	"users_email_key":      "email",
	"users_phone_key":      "phone",
	"users_token_hash_key": "token",
}

const selectUser = `SELECT id, username, email, phone, first_name, last_name, birth_date, address, role_id,
		password_hash, recovery_question_id, recovery_answer_hash, allow_biometric, token_hash,
		failed_attempts, status, created_at
	 FROM users`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, username, email, phone, first_name, last_name, birth_date, address, role_id,
		                    password_hash, recovery_question_id, recovery_answer_hash, allow_biometric, token_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING failed_attempts, status, created_at
		 `

	var birthDate sql.NullTime
	if !user.BirthDate.IsZero() {
		birthDate = sql.NullTime{Time: user.BirthDate, Valid: true}
	}
	tokenHash := sql.NullString{String: user.TokenHash, Valid: user.TokenHash != ""}

	var status string
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.Phone, user.FirstName, user.LastName, birthDate, user.Address,
		user.RoleID, user.PasswordHash, user.RecoveryQuestionID, user.RecoveryAnswerHash, user.AllowBiometric, tokenHash,
	).Scan(&user.FailedAttempts, &status, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if field, ok := constraintFields[pgErr.ConstraintName]; ok {
				return nil, &DuplicateError{Field: field}
			}
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Status = models.AccountStatus(status)
	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	query := selectUser + `
	 WHERE username = $1 OR email = $1 OR phone = $1
	 LIMIT 1`
	return r.getOne(ctx, query, login)
}

func (r *PostgresRepository) GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	query := selectUser + `
	 WHERE token_hash = $1`
	return r.getOne(ctx, query, tokenHash)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user      models.User
		birthDate sql.NullTime
		tokenHash sql.NullString
		status    string
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.Phone, &user.FirstName, &user.LastName, &birthDate,
		&user.Address, &user.RoleID, &user.PasswordHash, &user.RecoveryQuestionID, &user.RecoveryAnswerHash,
		&user.AllowBiometric, &tokenHash, &user.FailedAttempts, &status, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if birthDate.Valid {
		user.BirthDate = birthDate.Time
	}
	user.TokenHash = tokenHash.String
	user.Status = models.AccountStatus(status)
	return &user, nil
}

func (r *PostgresRepository) TakenFields(ctx context.Context, username, email, phone string) ([]string, error) {
	query :=
		`SELECT username, email, phone FROM users
		 WHERE username = $1 OR email = $2 OR phone = $3
		 `

	rows, err := r.db.QueryContext(ctx, query, username, email, phone)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	taken := map[string]bool{}
	for rows.Next() {
		var u, e, p string
		if err := rows.Scan(&u, &e, &p); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		taken["username"] = taken["username"] || u == username
		taken["email"] = taken["email"] || e == email
		taken["phone"] = taken["phone"] || p == phone
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var fields []string
	for _, f := range []string{"username", "email", "phone"} {
		if taken[f] {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, userID string, maxAttempts int) (int, models.AccountStatus, error) {
	query :=
		`UPDATE users
		 SET failed_attempts = failed_attempts + 1,
		     status = CASE WHEN failed_attempts + 1 >= $2 THEN 'locked' ELSE status END
		 WHERE id = $1
		 RETURNING failed_attempts, status
		 `

	var (
		attempts int
		status   string
	)
	err := r.db.QueryRowContext(ctx, query, userID, maxAttempts).Scan(&attempts, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", common.ErrorNotFound
		}
		return 0, "", fmt.Errorf("db error: %w", err)
	}
	return attempts, models.AccountStatus(status), nil
}

func (r *PostgresRepository) ResetFailedLogins(ctx context.Context, userID string) error {
	query := `UPDATE users SET failed_attempts = 0 WHERE id = $1`
	return r.execOne(ctx, query, userID)
}

func (r *PostgresRepository) SetTokenHash(ctx context.Context, userID, tokenHash string) error {
	query := `UPDATE users SET token_hash = $2, allow_biometric = TRUE WHERE id = $1`
	err := r.execOne(ctx, query, userID, tokenHash)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &DuplicateError{Field: "token"}
	}
	return err
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID string, passwordHash []byte) error {
	query :=
		`UPDATE users
		 SET password_hash = $2, failed_attempts = 0, status = 'active'
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, userID, passwordHash)
}

// execOne runs an UPDATE that must touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
