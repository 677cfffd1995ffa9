package credentials

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/intelliworks/intellihome/internal/client/models"
	"github.com/intelliworks/intellihome/internal/client/repositories/metadata"
	"github.com/intelliworks/intellihome/internal/dbx"
)

const (
	KeyCiphertext = "biometric_token_ciphertext"
	KeyIV         = "biometric_token_iv"
)

// SQLiteStore keeps the record as two base64 rows of the metadata table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Save(ctx context.Context, rec models.EncryptedTokenRecord) error {
	if len(rec.Ciphertext) == 0 || len(rec.IV) == 0 {
		return errors.New("credentials: refusing to save an empty record")
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyCiphertext, []byte(base64.StdEncoding.EncodeToString(rec.Ciphertext))); err != nil {
			return err
		}
		return repo.Set(ctx, KeyIV, []byte(base64.StdEncoding.EncodeToString(rec.IV)))
	})
	if err != nil {
		return fmt.Errorf("failed to save token record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*models.EncryptedTokenRecord, error) {
	var ct, iv []byte

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		var err error
		if ct, err = repo.Get(ctx, KeyCiphertext); err != nil {
			return err
		}
		iv, err = repo.Get(ctx, KeyIV)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load token record: %w", err)
	}

	if ct == nil && iv == nil {
		return nil, nil
	}
	if ct == nil || iv == nil {
		return nil, ErrRecordCorrupted
	}

	rec := &models.EncryptedTokenRecord{}
	if rec.Ciphertext, err = decode(ct); err != nil {
		return nil, err
	}
	if rec.IV, err = decode(iv); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := metadata.NewSQLiteRepository(s.db).Delete(ctx, KeyCiphertext, KeyIV); err != nil {
		return fmt.Errorf("failed to clear token record: %w", err)
	}
	return nil
}

func decode(v []byte) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(string(v))
	if err != nil || len(out) == 0 {
		return nil, ErrRecordCorrupted
	}
	return out, nil
}
