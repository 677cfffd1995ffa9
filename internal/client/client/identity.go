package client

import (
	"context"

	"github.com/intelliworks/intellihome/internal/client/models"
)

// IdentityClient is the remote identity service as seen by the client.
type IdentityClient interface {
	// Register creates an account. reg.Token is sent only when
	// reg.AllowBiometric is set.
	Register(ctx context.Context, reg models.Registration) (*models.Identity, error)
	// Login authenticates by username, e-mail or phone.
	Login(ctx context.Context, identifier, password string) (*models.Session, error)
	// LookupByToken resolves a biometric login token. ErrNotFound for an
	// unknown token.
	LookupByToken(ctx context.Context, token string) (*models.Identity, error)
	// BindToken attaches a biometric login token to the logged-in account.
	BindToken(ctx context.Context, accessToken, token string) error
	RecoveryQuestion(ctx context.Context, identifier string) (*models.RecoveryQuestion, error)
	ResetPassword(ctx context.Context, identifier, newPassword, answer string) error
	Ping(ctx context.Context) error
	Close() error
}
