// Package keystore models the secure key store that holds the biometric
// login key. The Store interface is the port; SQLiteStore is the software
// implementation used by the CLI and MemoryStore backs tests.
//
// A stored key is only reachable through a Handle, which derives a block
// cipher and a MAC from the key but never returns the key bytes.
package keystore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/intelliworks/intellihome/internal/cryptox"
)

// KeySize is the size of the stored AES key material.
const KeySize = 32

var (
	// ErrKeyNotFound is returned when no key exists under an alias.
	// For biometric login this means "never enrolled".
	ErrKeyNotFound = errors.New("keystore: key not found")

	// ErrKeyInvalidated is returned when the key exists but can no longer be
	// used because the biometric enrollment changed after it was created.
	// The user has to enroll again.
	ErrKeyInvalidated = errors.New("keystore: key invalidated")

	// ErrKeyAlreadyExists is returned by Generate for an occupied alias.
	ErrKeyAlreadyExists = errors.New("keystore: key already exists")

	// ErrInvalidSpec is returned for a spec the store cannot honour.
	ErrInvalidSpec = errors.New("keystore: invalid key spec")
)

// Purpose is a bit set of permitted key operations.
type Purpose int

const (
	PurposeEncrypt Purpose = 1 << iota
	PurposeDecrypt
)

// Has reports whether all bits of q are set in p.
func (p Purpose) Has(q Purpose) bool { return p&q == q }

const (
	BlockModeCBC = "CBC"
	PaddingPKCS7 = "PKCS7Padding"
)

// KeySpec describes the key to generate.
type KeySpec struct {
	Alias     string
	Purposes  Purpose
	BlockMode string
	Padding   string

	// InvalidateOnEnrollmentChange binds the key to the biometric
	// enrollment present at creation time.
	InvalidateOnEnrollmentChange bool
}

// BiometricKeySpec returns the spec used for the biometric login key.
func BiometricKeySpec(alias string) KeySpec {
	return KeySpec{
		Alias:                        alias,
		Purposes:                     PurposeEncrypt | PurposeDecrypt,
		BlockMode:                    BlockModeCBC,
		Padding:                      PaddingPKCS7,
		InvalidateOnEnrollmentChange: true,
	}
}

func (s KeySpec) validate() error {
	switch {
	case s.Alias == "":
		return fmt.Errorf("%w: empty alias", ErrInvalidSpec)
	case !s.Purposes.Has(PurposeEncrypt) && !s.Purposes.Has(PurposeDecrypt):
		return fmt.Errorf("%w: no purposes", ErrInvalidSpec)
	case s.BlockMode != BlockModeCBC:
		return fmt.Errorf("%w: block mode %q", ErrInvalidSpec, s.BlockMode)
	case s.Padding != PaddingPKCS7:
		return fmt.Errorf("%w: padding %q", ErrInvalidSpec, s.Padding)
	}
	return nil
}

// Handle is a reference to a usable key. Permits reports whether the key
// was generated for the given cipher direction; cryptox refuses sessions
// the key's purposes do not allow.
type Handle interface {
	Alias() string
	Spec() KeySpec
	Block() (cipher.Block, error)
	MAC() (hash.Hash, error)
	Permits(m cryptox.Mode) bool
}

// Store is the secure key store port.
type Store interface {
	// Contains reports whether a key exists under alias, usable or not.
	Contains(ctx context.Context, alias string) (bool, error)
	// Generate creates a key; ErrKeyAlreadyExists if the alias is taken.
	Generate(ctx context.Context, spec KeySpec) error
	// Key returns a handle, ErrKeyNotFound or ErrKeyInvalidated.
	Key(ctx context.Context, alias string) (Handle, error)
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, alias string) error
}

// EnrollmentSource reports an identifier of the biometric credentials
// currently enrolled on the device. Any change of the value invalidates
// keys created with InvalidateOnEnrollmentChange.
type EnrollmentSource interface {
	EnrollmentID(ctx context.Context) (string, error)
}

// StaticEnrollment is an EnrollmentSource with a fixed identifier.
type StaticEnrollment string

func (s StaticEnrollment) EnrollmentID(context.Context) (string, error) {
	return string(s), nil
}

const (
	hkdfInfoEnc = "intellihome/biometric-token/enc"
	hkdfInfoMAC = "intellihome/biometric-token/mac"
)

// softwareHandle derives independent encryption and MAC keys from the
// stored material with HKDF-SHA256.
type softwareHandle struct {
	spec     KeySpec
	material []byte
}

func newSoftwareHandle(spec KeySpec, material []byte) *softwareHandle {
	return &softwareHandle{spec: spec, material: append([]byte(nil), material...)}
}

func (h *softwareHandle) Alias() string { return h.spec.Alias }

func (h *softwareHandle) Spec() KeySpec { return h.spec }

func (h *softwareHandle) Permits(m cryptox.Mode) bool {
	switch m {
	case cryptox.ModeEncrypt:
		return h.spec.Purposes.Has(PurposeEncrypt)
	case cryptox.ModeDecrypt:
		return h.spec.Purposes.Has(PurposeDecrypt)
	default:
		return false
	}
}

func (h *softwareHandle) Block() (cipher.Block, error) {
	k, err := h.derive(hkdfInfoEnc)
	if err != nil {
		return nil, err
	}
	return aes.NewCipher(k)
}

func (h *softwareHandle) MAC() (hash.Hash, error) {
	k, err := h.derive(hkdfInfoMAC)
	if err != nil {
		return nil, err
	}
	return hmac.New(sha256.New, k), nil
}

func (h *softwareHandle) derive(info string) ([]byte, error) {
	if len(h.material) != KeySize {
		return nil, fmt.Errorf("keystore: key %q has %d bytes of material", h.spec.Alias, len(h.material))
	}
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, h.material, nil, []byte(info)), out); err != nil {
		return nil, err
	}
	return out, nil
}
