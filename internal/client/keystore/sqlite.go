package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/intelliworks/intellihome/internal/common"
	"github.com/intelliworks/intellihome/internal/dbx"
)

// SQLiteStore is the software key store kept in the client database
// (table keystore). It stands in for a hardware-backed store on platforms
// without one.
type SQLiteStore struct {
	db         dbx.DBTX
	enrollment EnrollmentSource
}

func NewSQLiteStore(db dbx.DBTX, enrollment EnrollmentSource) *SQLiteStore {
	return &SQLiteStore{db: db, enrollment: enrollment}
}

func (s *SQLiteStore) Contains(ctx context.Context, alias string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM keystore WHERE alias = ?`, alias).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up key[%s]: %w", alias, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Generate(ctx context.Context, spec KeySpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	enrollmentID, err := currentEnrollment(ctx, s.enrollment, spec)
	if err != nil {
		return err
	}

	material := common.GenerateRandByteArray(KeySize)
	defer common.WipeByteArray(material)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO keystore (alias, material, purposes, block_mode, padding, invalidate_on_enrollment, enrollment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(alias) DO NOTHING
	`, spec.Alias, material, int(spec.Purposes), spec.BlockMode, spec.Padding, spec.InvalidateOnEnrollmentChange, enrollmentID)
	if err != nil {
		return fmt.Errorf("failed to generate key[%s]: %w", spec.Alias, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to generate key[%s]: %w", spec.Alias, err)
	}
	if n == 0 {
		return ErrKeyAlreadyExists
	}
	return nil
}

func (s *SQLiteStore) Key(ctx context.Context, alias string) (Handle, error) {
	var (
		material     []byte
		purposes     int
		spec         = KeySpec{Alias: alias}
		enrollmentID string
		invalidated  bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT material, purposes, block_mode, padding, invalidate_on_enrollment, enrollment_id, invalidated
		FROM keystore WHERE alias = ?
	`, alias).Scan(&material, &purposes, &spec.BlockMode, &spec.Padding, &spec.InvalidateOnEnrollmentChange, &enrollmentID, &invalidated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key[%s]: %w", alias, err)
	}
	spec.Purposes = Purpose(purposes)

	if invalidated {
		return nil, ErrKeyInvalidated
	}
	changed, err := enrollmentChanged(ctx, s.enrollment, spec, enrollmentID)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.Invalidate(ctx, alias); err != nil {
			return nil, err
		}
		return nil, ErrKeyInvalidated
	}
	return newSoftwareHandle(spec, material), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, alias string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM keystore WHERE alias = ?`, alias); err != nil {
		return fmt.Errorf("failed to delete key[%s]: %w", alias, err)
	}
	return nil
}

// Invalidate permanently marks the key unusable.
func (s *SQLiteStore) Invalidate(ctx context.Context, alias string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE keystore SET invalidated = 1 WHERE alias = ?`, alias)
	if err != nil {
		return fmt.Errorf("failed to invalidate key[%s]: %w", alias, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrKeyNotFound
	}
	return nil
}
