package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/intelliworks/intellihome/internal/client/client"
	"github.com/intelliworks/intellihome/internal/client/models"
	"github.com/intelliworks/intellihome/internal/client/repositories/metadata"
	"github.com/intelliworks/intellihome/internal/common"
)

// RememberedIdentifierKey is the metadata key of the "remember me" value.
// Only the login identifier is stored, never the password.
const RememberedIdentifierKey = "remembered_identifier"

// AuthService handles password login, registration without biometrics and
// password recovery.
type AuthService struct {
	client client.IdentityClient
	db     *sql.DB
}

func NewAuthService(c client.IdentityClient, db *sql.DB) *AuthService {
	return &AuthService{client: c, db: db}
}

func (a *AuthService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// Login authenticates by username, e-mail or phone. With remember set the
// identifier is kept for the next start; without it any remembered
// identifier is forgotten.
func (a *AuthService) Login(ctx context.Context, identifier, password string, remember bool) (*models.Session, error) {
	identifier = strings.TrimSpace(identifier)
	fields := map[string]string{}
	if identifier == "" {
		fields["identifier"] = "is required"
	}
	if password == "" {
		fields["password"] = "is required"
	}
	if err := common.NewValidationError(fields); err != nil {
		return nil, err
	}

	session, err := a.client.Login(ctx, identifier, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	if remember {
		err = a.getMetadataRepo().Set(ctx, RememberedIdentifierKey, []byte(identifier))
	} else {
		err = a.getMetadataRepo().Delete(ctx, RememberedIdentifierKey)
	}
	if err != nil {
		return nil, fmt.Errorf("remember identifier: %w", err)
	}
	return session, nil
}

// Register creates an account without biometric login.
func (a *AuthService) Register(ctx context.Context, reg models.Registration) (*models.Identity, error) {
	if p := common.CheckPassword(reg.Password); p != "" {
		return nil, &common.ValidationError{Fields: map[string]string{"password": p}}
	}
	reg.AllowBiometric = false
	reg.Token = ""

	id, err := a.client.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register error: %w", err)
	}
	return id, nil
}

func (a *AuthService) RecoveryQuestion(ctx context.Context, identifier string) (*models.RecoveryQuestion, error) {
	q, err := a.client.RecoveryQuestion(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, fmt.Errorf("recovery question error: %w", err)
	}
	return q, nil
}

// ResetPassword sets a new password after answering the recovery question.
// A successful reset also unlocks a locked account.
func (a *AuthService) ResetPassword(ctx context.Context, identifier, newPassword, answer string) error {
	if p := common.CheckPassword(newPassword); p != "" {
		return &common.ValidationError{Fields: map[string]string{"new_password": p}}
	}
	if err := a.client.ResetPassword(ctx, strings.TrimSpace(identifier), newPassword, answer); err != nil {
		return fmt.Errorf("reset password error: %w", err)
	}
	return nil
}

// RememberedIdentifier returns "" when nothing is remembered.
func (a *AuthService) RememberedIdentifier(ctx context.Context) (string, error) {
	v, err := a.getMetadataRepo().Get(ctx, RememberedIdentifierKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (a *AuthService) Forget(ctx context.Context) error {
	return a.getMetadataRepo().Delete(ctx, RememberedIdentifierKey)
}

func (a *AuthService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *AuthService) Close() error {
	return a.client.Close()
}
