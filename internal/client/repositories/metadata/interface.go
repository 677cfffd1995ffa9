// Package metadata stores small client-side values (remembered login
// identifier, the encrypted biometric token record) in the metadata table of
// the local SQLite database.
package metadata

import (
	"context"
)

// Repository is a key/value store. Get returns (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
