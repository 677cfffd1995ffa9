// Package keys manages the lifecycle of the biometric login key on top of a
// keystore.Store.
package keys

import (
	"context"
	"errors"
	"fmt"

	"github.com/intelliworks/intellihome/internal/client/keystore"
)

// Manager creates the key at most once per alias. EnsureKey never rotates
// an existing key, usable or not; an invalidated key has to be removed with
// DeleteKey first.
type Manager struct {
	store keystore.Store
	spec  func(alias string) keystore.KeySpec
}

func NewManager(store keystore.Store) *Manager {
	return &Manager{store: store, spec: keystore.BiometricKeySpec}
}

// EnsureKey creates the key if absent.
func (m *Manager) EnsureKey(ctx context.Context, alias string) error {
	ok, err := m.store.Contains(ctx, alias)
	if err != nil {
		return fmt.Errorf("ensure key %q: %w", alias, err)
	}
	if ok {
		return nil
	}

	err = m.store.Generate(ctx, m.spec(alias))
	if errors.Is(err, keystore.ErrKeyAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ensure key %q: %w", alias, err)
	}
	return nil
}

// GetKey returns keystore.ErrKeyNotFound or keystore.ErrKeyInvalidated
// unwrapped so callers can tell them apart.
func (m *Manager) GetKey(ctx context.Context, alias string) (keystore.Handle, error) {
	h, err := m.store.Key(ctx, alias)
	switch {
	case err == nil:
		return h, nil
	case errors.Is(err, keystore.ErrKeyNotFound), errors.Is(err, keystore.ErrKeyInvalidated):
		return nil, err
	default:
		return nil, fmt.Errorf("get key %q: %w", alias, err)
	}
}

func (m *Manager) DeleteKey(ctx context.Context, alias string) error {
	if err := m.store.Delete(ctx, alias); err != nil {
		return fmt.Errorf("delete key %q: %w", alias, err)
	}
	return nil
}
