package keystore

import (
	"context"
	"sync"

	"github.com/intelliworks/intellihome/internal/common"
)

type memoryEntry struct {
	spec         KeySpec
	material     []byte
	enrollmentID string
	invalidated  bool
}

// MemoryStore keeps keys in process memory. It follows the same
// invalidation rules as SQLiteStore and counts how many keys it generated.
type MemoryStore struct {
	mu          sync.Mutex
	enrollment  EnrollmentSource
	keys        map[string]*memoryEntry
	generations int
}

func NewMemoryStore(enrollment EnrollmentSource) *MemoryStore {
	return &MemoryStore{enrollment: enrollment, keys: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) Contains(_ context.Context, alias string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[alias]
	return ok, nil
}

func (m *MemoryStore) Generate(ctx context.Context, spec KeySpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	enrollmentID, err := currentEnrollment(ctx, m.enrollment, spec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[spec.Alias]; ok {
		return ErrKeyAlreadyExists
	}
	material := common.GenerateRandByteArray(KeySize)
	m.keys[spec.Alias] = &memoryEntry{spec: spec, material: material, enrollmentID: enrollmentID}
	m.generations++
	return nil
}

func (m *MemoryStore) Key(ctx context.Context, alias string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.keys[alias]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if e.invalidated {
		return nil, ErrKeyInvalidated
	}
	changed, err := enrollmentChanged(ctx, m.enrollment, e.spec, e.enrollmentID)
	if err != nil {
		return nil, err
	}
	if changed {
		e.invalidated = true
		return nil, ErrKeyInvalidated
	}
	return newSoftwareHandle(e.spec, e.material), nil
}

func (m *MemoryStore) Delete(_ context.Context, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, alias)
	return nil
}

// Invalidate marks a key unusable, as the platform does after an
// enrollment change.
func (m *MemoryStore) Invalidate(_ context.Context, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.keys[alias]
	if !ok {
		return ErrKeyNotFound
	}
	e.invalidated = true
	return nil
}

// Generations returns the number of successful Generate calls.
func (m *MemoryStore) Generations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations
}
