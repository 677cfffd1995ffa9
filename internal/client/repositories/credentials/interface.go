// Package credentials persists the encrypted biometric login token.
//
// The record is the pair {ciphertext, iv} produced by cryptox. It exists if
// and only if biometric login is enabled on this device. The store never
// sees the plaintext token.
package credentials

import (
	"context"
	"errors"

	"github.com/intelliworks/intellihome/internal/client/models"
)

// ErrRecordCorrupted is returned by Load when only one half of the record
// is present or a half is not valid base64.
var ErrRecordCorrupted = errors.New("credentials: stored token record is corrupted")

type Store interface {
	// Save replaces the whole record atomically.
	Save(ctx context.Context, rec models.EncryptedTokenRecord) error
	// Load returns (nil, nil) when no record exists.
	Load(ctx context.Context) (*models.EncryptedTokenRecord, error)
	// Clear removes the record. Clearing an absent record is not an error.
	Clear(ctx context.Context) error
}
