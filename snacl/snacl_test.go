package snacl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	password = []byte("sikrit")
	message  = []byte("this is a secret message of sorts")
)

// fast scrypt parameters so the tests do not burn CPU.
const (
	testN = 16
	testR = 8
	testP = 1
)

func TestSecretKeyRoundTrip(t *testing.T) {
	key, err := NewSecretKey(&password, testN, testR, testP)
	require.NoError(t, err)

	blob, err := key.Encrypt(message)
	require.NoError(t, err)

	decrypted, err := key.Decrypt(blob)
	require.NoError(t, err)
	require.Equal(t, message, decrypted)
}

func TestSecretKeyRederive(t *testing.T) {
	key, err := NewSecretKey(&password, testN, testR, testP)
	require.NoError(t, err)

	blob, err := key.Encrypt(message)
	require.NoError(t, err)

	// Simulate reloading the key from storage: only the marshalled
	// parameters survive, the key itself must come back out of the
	// passphrase.
	var reloaded SecretKey
	require.NoError(t, reloaded.Unmarshal(key.Marshal()))
	require.NoError(t, reloaded.DeriveKey(&password))

	decrypted, err := reloaded.Decrypt(blob)
	require.NoError(t, err)
	require.Equal(t, message, decrypted)
}

func TestSecretKeyWrongPassword(t *testing.T) {
	key, err := NewSecretKey(&password, testN, testR, testP)
	require.NoError(t, err)

	var reloaded SecretKey
	require.NoError(t, reloaded.Unmarshal(key.Marshal()))

	wrong := []byte("wrong")
	require.ErrorIs(t, reloaded.DeriveKey(&wrong), ErrInvalidPassword)
}

func TestSecretKeyUnmarshalMalformed(t *testing.T) {
	var reloaded SecretKey
	require.ErrorIs(t, reloaded.Unmarshal([]byte{0x01, 0x02}), ErrMalformed)
}

func TestCryptoKeyDecryptErrors(t *testing.T) {
	key, err := GenerateCryptoKey()
	require.NoError(t, err)

	// Too short to even contain a nonce.
	_, err = key.Decrypt([]byte{0x01})
	require.ErrorIs(t, err, ErrMalformed)

	// Valid length but sealed with a different key.
	other, err := GenerateCryptoKey()
	require.NoError(t, err)
	blob, err := other.Encrypt(message)
	require.NoError(t, err)
	_, err = key.Decrypt(blob)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestCryptoKeyZero(t *testing.T) {
	key, err := GenerateCryptoKey()
	require.NoError(t, err)

	key.Zero()
	require.True(t, bytes.Equal(key[:], make([]byte, KeySize)))
}
