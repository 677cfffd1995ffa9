// Package cryptox implements the on-device token cipher: AES-CBC with PKCS#7
// padding, authenticated with an HMAC-SHA256 tag (encrypt-then-MAC).
//
// A Session is bound to one key, one mode and one IV, and can be finalized
// exactly once. Encrypt sessions generate their own IV; decrypt sessions
// must be given the IV that was stored next to the ciphertext.
//
// The output of an encrypt session is cbc || tag, where tag covers iv || cbc.
// This is an on-device format only; nothing outside this package parses it.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"errors"
	"fmt"
	"hash"
	"sync"
)

// TagSize is the length of the HMAC-SHA256 tag appended to every ciphertext.
const TagSize = 32

var (
	// ErrCipherInit is returned when a session cannot be built from the
	// supplied key or IV.
	ErrCipherInit = errors.New("cipher init error")

	// ErrDecryptFailure is returned for a wrong IV, a wrong key or a
	// tampered ciphertext. It never carries partial plaintext.
	ErrDecryptFailure = errors.New("decrypt failure")

	// ErrSessionFinalized is returned when Finalize is called twice.
	ErrSessionFinalized = errors.New("cipher session already finalized")

	// ErrKeyPurpose is returned when a key is not permitted for the
	// requested direction.
	ErrKeyPurpose = errors.New("key not permitted for this operation")
)

// Key is the capability a key-store handle must provide. Raw key material
// never reaches this package.
type Key interface {
	Block() (cipher.Block, error)
	MAC() (hash.Hash, error)
}

// PurposeKey is implemented by keys restricted to some directions. Keys
// without it may be used both ways.
type PurposeKey interface {
	Permits(m Mode) bool
}

// Mode selects the direction of a Session.
type Mode int

const (
	ModeEncrypt Mode = iota + 1
	ModeDecrypt
)

func (m Mode) String() string {
	switch m {
	case ModeEncrypt:
		return "encrypt"
	case ModeDecrypt:
		return "decrypt"
	default:
		return "unknown"
	}
}

// Session is a single-use encrypt or decrypt operation.
type Session struct {
	mode  Mode
	block cipher.Block
	mac   hash.Hash
	iv    []byte

	mu        sync.Mutex
	finalized bool
}

// BeginEncrypt returns an encrypt session bound to a fresh random IV.
func BeginEncrypt(key Key) (*Session, error) {
	block, mac, err := open(key, ModeEncrypt)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, block.BlockSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrCipherInit, err)
	}

	return &Session{mode: ModeEncrypt, block: block, mac: mac, iv: iv}, nil
}

// BeginDecrypt returns a decrypt session bound to iv, which must be exactly
// one cipher block long.
func BeginDecrypt(key Key, iv []byte) (*Session, error) {
	block, mac, err := open(key, ModeDecrypt)
	if err != nil {
		return nil, err
	}

	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("%w: iv length %d, want %d", ErrCipherInit, len(iv), block.BlockSize())
	}

	return &Session{mode: ModeDecrypt, block: block, mac: mac, iv: append([]byte(nil), iv...)}, nil
}

func open(key Key, mode Mode) (cipher.Block, hash.Hash, error) {
	if key == nil {
		return nil, nil, fmt.Errorf("%w: nil key", ErrCipherInit)
	}
	if pk, ok := key.(PurposeKey); ok && !pk.Permits(mode) {
		return nil, nil, fmt.Errorf("%w: %s", ErrKeyPurpose, mode)
	}
	block, err := key.Block()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCipherInit, err)
	}
	if block.BlockSize() != aes.BlockSize {
		return nil, nil, fmt.Errorf("%w: unexpected block size %d", ErrCipherInit, block.BlockSize())
	}
	mac, err := key.MAC()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCipherInit, err)
	}
	if mac.Size() != TagSize {
		return nil, nil, fmt.Errorf("%w: unexpected mac size %d", ErrCipherInit, mac.Size())
	}
	return block, mac, nil
}

// Mode reports whether the session encrypts or decrypts.
func (s *Session) Mode() Mode { return s.mode }

// IV returns a copy of the session IV. For encrypt sessions this is the
// value that must be persisted alongside the ciphertext.
func (s *Session) IV() []byte { return append([]byte(nil), s.iv...) }

// Finalize runs the operation over input and consumes the session.
func (s *Session) Finalize(input []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return nil, ErrSessionFinalized
	}
	s.finalized = true

	if s.mode == ModeEncrypt {
		return s.seal(input), nil
	}
	return s.open(input)
}

func (s *Session) seal(plaintext []byte) []byte {
	padded := pkcs7Pad(plaintext, s.block.BlockSize())
	out := make([]byte, len(padded), len(padded)+TagSize)
	cipher.NewCBCEncrypter(s.block, s.iv).CryptBlocks(out, padded)

	return append(out, s.tag(out)...)
}

func (s *Session) open(input []byte) ([]byte, error) {
	bs := s.block.BlockSize()
	if len(input) < bs+TagSize || (len(input)-TagSize)%bs != 0 {
		return nil, ErrDecryptFailure
	}

	body, tag := input[:len(input)-TagSize], input[len(input)-TagSize:]
	if !hmac.Equal(tag, s.tag(body)) {
		return nil, ErrDecryptFailure
	}

	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(s.block, s.iv).CryptBlocks(out, body)

	plaintext, err := pkcs7Unpad(out, bs)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	return plaintext, nil
}

func (s *Session) tag(body []byte) []byte {
	s.mac.Reset()
	s.mac.Write(s.iv)
	s.mac.Write(body)
	return s.mac.Sum(nil)
}
