package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"hash"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleToken = "550e8400-e29b-41d4-a716-446655440000"

type testKey struct {
	enc []byte
	mac []byte
}

func newTestKey(seed byte) *testKey {
	enc := make([]byte, 32)
	mac := make([]byte, 32)
	for i := range enc {
		enc[i] = seed + byte(i)
		mac[i] = seed ^ byte(i*7)
	}
	return &testKey{enc: enc, mac: mac}
}

func (k *testKey) Block() (cipher.Block, error) { return aes.NewCipher(k.enc) }
func (k *testKey) MAC() (hash.Hash, error) { return hmac.New(sha256.New, k.mac), nil }

type brokenKey struct{}

func (brokenKey) Block() (cipher.Block, error) { return nil, errors.New("key material unavailable") }
func (brokenKey) MAC() (hash.Hash, error) { return nil, errors.New("unreachable") }

// encryptOnlyKey permits encryption only.
type encryptOnlyKey struct{ *testKey }

func (encryptOnlyKey) Permits(m Mode) bool { return m == ModeEncrypt }

func encrypt(t *testing.T, key Key, plaintext []byte) (ciphertext, iv []byte) {
	t.Helper()
	s, err := BeginEncrypt(key)
	require.NoError(t, err)
	ct, err := s.Finalize(plaintext)
	require.NoError(t, err)
	return ct, s.IV()
}

func decrypt(key Key, ciphertext, iv []byte) ([]byte, error) {
	s, err := BeginDecrypt(key, iv)
	if err != nil {
		return nil, err
	}
	return s.Finalize(ciphertext)
}

func TestRoundTrip(t *testing.T) {
	key := newTestKey(1)

	for _, in := range []string{"", "a", sampleToken, "exactly-16-bytes", string(make([]byte, 100))} {
		ct, iv := encrypt(t, key, []byte(in))

		got, err := decrypt(key, ct, iv)
		require.NoError(t, err)
		assert.Equal(t, in, string(got))
	}
}

func TestDecrypt_Deterministic(t *testing.T) {
	key := newTestKey(2)
	ct, iv := encrypt(t, key, []byte(sampleToken))

	first, err := decrypt(key, ct, iv)
	require.NoError(t, err)
	second, err := decrypt(key, ct, iv)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncrypt_FreshIVPerSession(t *testing.T) {
	key := newTestKey(3)
	ct1, iv1 := encrypt(t, key, []byte(sampleToken))
	ct2, iv2 := encrypt(t, key, []byte(sampleToken))

	assert.Len(t, iv1, aes.BlockSize)
	assert.NotEqual(t, iv1, iv2)
	assert.NotEqual(t, ct1, ct2)
}

func TestDecrypt_TamperedCiphertextFails(t *testing.T) {
	key := newTestKey(4)
	ct, iv := encrypt(t, key, []byte(sampleToken))

	for i := range ct {
		tampered := append([]byte(nil), ct...)
		tampered[i] ^= 0x01

		got, err := decrypt(key, tampered, iv)
		require.ErrorIs(t, err, ErrDecryptFailure, "byte %d", i)
		require.Nil(t, got)
	}
}

func TestDecrypt_TamperedIVFails(t *testing.T) {
	key := newTestKey(5)
	ct, iv := encrypt(t, key, []byte(sampleToken))

	for i := range iv {
		tampered := append([]byte(nil), iv...)
		tampered[i] ^= 0x80

		_, err := decrypt(key, ct, tampered)
		require.ErrorIs(t, err, ErrDecryptFailure, "byte %d", i)
	}
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	ct, iv := encrypt(t, newTestKey(6), []byte(sampleToken))

	_, err := decrypt(newTestKey(7), ct, iv)
	require.ErrorIs(t, err, ErrDecryptFailure)
}

func TestDecrypt_MalformedLengths(t *testing.T) {
	key := newTestKey(8)
	ct, iv := encrypt(t, key, []byte(sampleToken))

	cases := map[string][]byte{
		"empty":           nil,
		"tag only":        ct[len(ct)-TagSize:],
		"truncated":       ct[:len(ct)-1],
		"extra byte":      append(append([]byte(nil), ct...), 0),
		"missing a block": ct[aes.BlockSize:],
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decrypt(key, in, iv)
			require.ErrorIs(t, err, ErrDecryptFailure)
		})
	}
}

func TestBeginDecrypt_BadIVLength(t *testing.T) {
	_, err := BeginDecrypt(newTestKey(9), []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrCipherInit)
}

func TestBegin_KeyErrors(t *testing.T) {
	_, err := BeginEncrypt(nil)
	require.ErrorIs(t, err, ErrCipherInit)

	_, err = BeginEncrypt(brokenKey{})
	require.ErrorIs(t, err, ErrCipherInit)

	_, err = BeginDecrypt(brokenKey{}, make([]byte, aes.BlockSize))
	require.ErrorIs(t, err, ErrCipherInit)
}

func TestSession_SingleUse(t *testing.T) {
	key := newTestKey(10)

	s, err := BeginEncrypt(key)
	require.NoError(t, err)
	assert.Equal(t, ModeEncrypt, s.Mode())

	_, err = s.Finalize([]byte("first"))
	require.NoError(t, err)
	_, err = s.Finalize([]byte("second"))
	require.ErrorIs(t, err, ErrSessionFinalized)

	ct, iv := encrypt(t, key, []byte(sampleToken))
	d, err := BeginDecrypt(key, iv)
	require.NoError(t, err)
	assert.Equal(t, ModeDecrypt, d.Mode())
	_, err = d.Finalize(ct)
	require.NoError(t, err)
	_, err = d.Finalize(ct)
	require.ErrorIs(t, err, ErrSessionFinalized)
}

func TestSession_IVIsACopy(t *testing.T) {
	s, err := BeginEncrypt(newTestKey(11))
	require.NoError(t, err)

	iv := s.IV()
	iv[0] ^= 0xff
	assert.NotEqual(t, iv, s.IV())
}

func TestPKCS7(t *testing.T) {
	padded := pkcs7Pad([]byte("abc"), 8)
	assert.Equal(t, []byte{'a', 'b', 'c', 5, 5, 5, 5, 5}, padded)

	full := pkcs7Pad([]byte("12345678"), 8)
	assert.Len(t, full, 16)

	out, err := pkcs7Unpad(padded, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)

	_, err = pkcs7Unpad([]byte{'a', 'b', 'c', 5, 5, 5, 4, 5}, 8)
	require.Error(t, err)
	_, err = pkcs7Unpad([]byte{1, 2, 3, 4, 5, 6, 7, 0}, 8)
	require.Error(t, err)
	_, err = pkcs7Unpad([]byte{1, 2, 3, 4, 5, 6, 7, 9}, 8)
	require.Error(t, err)
	_, err = pkcs7Unpad(nil, 8)
	require.Error(t, err)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "encrypt", ModeEncrypt.String())
	assert.Equal(t, "decrypt", ModeDecrypt.String())
	assert.Equal(t, "unknown", Mode(0).String())
}

func TestBegin_KeyPurpose(t *testing.T) {
	key := encryptOnlyKey{newTestKey(3)}

	ct, iv := encrypt(t, key, []byte(sampleToken))
	require.NotEmpty(t, ct)

	_, err := BeginDecrypt(key, iv)
	require.ErrorIs(t, err, ErrKeyPurpose)

	plain, err := decrypt(key.testKey, ct, iv)
	require.NoError(t, err)
	assert.Equal(t, sampleToken, string(plain))
}
