package users

import (
	"context"
	"errors"

	"github.com/intelliworks/intellihome/internal/server/models"
)

// ErrDuplicate is returned by Create when a unique column is already taken.
// The concrete error is a *DuplicateError naming the column.
var ErrDuplicate = errors.New("duplicate value")

// DuplicateError names the unique column that rejected an insert.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string { return "duplicate " + e.Field }

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin finds a user by username, e-mail or phone.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	// TakenFields reports which of username, email and phone already exist.
	TakenFields(ctx context.Context, username, email, phone string) ([]string, error)
	// RecordFailedLogin increments the failure counter and locks the account
	// once it reaches maxAttempts. It returns the new counter and status.
	RecordFailedLogin(ctx context.Context, userID string, maxAttempts int) (int, models.AccountStatus, error)
	ResetFailedLogins(ctx context.Context, userID string) error
	SetTokenHash(ctx context.Context, userID, tokenHash string) error
	// UpdatePassword also clears the failure counter and unlocks the account.
	UpdatePassword(ctx context.Context, userID string, passwordHash []byte) error
}
