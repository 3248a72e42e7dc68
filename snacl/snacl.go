package snacl

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"
	"runtime/debug"

	"github.com/tapvault/tapsigner/internal/zero"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	// KeySize is the size of a symmetric crypto key in bytes.
	KeySize = 32

	// NonceSize is the size of the secretbox nonce in bytes.
	NonceSize = 24
)

var (
	prng = rand.Reader

	// ErrInvalidPassword is returned when a password does not produce the
	// key that sealed the stored parameter digest.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrMalformed is returned when encrypted or marshalled data is too
	// short to be valid.
	ErrMalformed = errors.New("malformed data")

	// ErrDecryptFailed is returned when the secretbox open operation
	// fails, usually because the wrong key was used.
	ErrDecryptFailed = errors.New("unable to decrypt")
)

// Various scrypt cost parameters.
const (
	DefaultN = 16384 // 2^14
	DefaultR = 8
	DefaultP = 1
)

// CryptoKey represents a secret key which can be used to encrypt and decrypt
// data via nacl secretbox.
type CryptoKey [KeySize]byte

// Encrypt encrypts the passed data with a random nonce and prepends the nonce
// to the returned ciphertext.
func (ck *CryptoKey) Encrypt(in []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	_, err := io.ReadFull(prng, nonce[:])
	if err != nil {
		return nil, err
	}
	blob := secretbox.Seal(nil, in, &nonce, (*[KeySize]byte)(ck))
	return append(nonce[:], blob...), nil
}

// Decrypt decrypts the passed data.  The must be the output of the Encrypt
// function, i.e. prefixed by the nonce used to seal it.
func (ck *CryptoKey) Decrypt(in []byte) ([]byte, error) {
	if len(in) < NonceSize {
		return nil, ErrMalformed
	}

	var nonce [NonceSize]byte
	copy(nonce[:], in[:NonceSize])
	blob := in[NonceSize:]

	opened, ok := secretbox.Open(nil, blob, &nonce, (*[KeySize]byte)(ck))
	if !ok {
		return nil, ErrDecryptFailed
	}

	return opened, nil
}

// Zero clears the key so that it is no longer in memory.
func (ck *CryptoKey) Zero() {
	zero.Bytea32((*[KeySize]byte)(ck))
}

// GenerateCryptoKey generates a new crypto key from a cryptographically
// secure random source.
func GenerateCryptoKey() (*CryptoKey, error) {
	var key CryptoKey
	_, err := io.ReadFull(prng, key[:])
	if err != nil {
		return nil, err
	}

	return &key, nil
}

// Parameters are the non-secret scrypt parameters that must be stored
// alongside the data sealed by a SecretKey in order to re-derive the key
// from the passphrase later.
type Parameters struct {
	Salt   [KeySize]byte
	Digest [sha256.Size]byte
	N      int
	R      int
	P      int
}

// paramsSize is the marshalled size of Parameters.
const paramsSize = KeySize + sha256.Size + 24

// SecretKey is a CryptoKey derived from a user passphrase via scrypt.
type SecretKey struct {
	Key        *CryptoKey
	Parameters Parameters
}

// deriveKey fills out the Key field from the passphrase and the stored
// scrypt parameters.
func (sk *SecretKey) deriveKey(password *[]byte) error {
	key, err := scrypt.Key(
		*password,
		sk.Parameters.Salt[:],
		sk.Parameters.N,
		sk.Parameters.R,
		sk.Parameters.P,
		len(sk.Key),
	)
	if err != nil {
		return err
	}

	copy(sk.Key[:], key)
	zero.Bytes(key)

	// The scrypt algorithm hangs on to a large chunk of memory which is
	// not immediately reclaimed, which matters for the key file sizes
	// used here.  Force it back to the OS.
	debug.FreeOSMemory()

	return nil
}

// Marshal returns the non-secret parameters needed to re-derive the key in
// a serialized form suitable for storage.
func (sk *SecretKey) Marshal() []byte {
	params := &sk.Parameters

	marshalled := make([]byte, paramsSize)
	b := marshalled
	copy(b[:KeySize], params.Salt[:])
	b = b[KeySize:]
	copy(b[:sha256.Size], params.Digest[:])
	b = b[sha256.Size:]
	binary.LittleEndian.PutUint64(b[:8], uint64(params.N))
	b = b[8:]
	binary.LittleEndian.PutUint64(b[:8], uint64(params.R))
	b = b[8:]
	binary.LittleEndian.PutUint64(b[:8], uint64(params.P))

	return marshalled
}

// Unmarshal deserializes parameters previously produced by Marshal into the
// receiver.
func (sk *SecretKey) Unmarshal(marshalled []byte) error {
	if sk.Key == nil {
		sk.Key = (*CryptoKey)(&[KeySize]byte{})
	}

	if len(marshalled) != paramsSize {
		return ErrMalformed
	}

	params := &sk.Parameters
	copy(params.Salt[:], marshalled[:KeySize])
	marshalled = marshalled[KeySize:]
	copy(params.Digest[:], marshalled[:sha256.Size])
	marshalled = marshalled[sha256.Size:]
	params.N = int(binary.LittleEndian.Uint64(marshalled[:8]))
	marshalled = marshalled[8:]
	params.R = int(binary.LittleEndian.Uint64(marshalled[:8]))
	marshalled = marshalled[8:]
	params.P = int(binary.LittleEndian.Uint64(marshalled[:8]))

	return nil
}

// Zero clears the underlying crypto key.
func (sk *SecretKey) Zero() {
	sk.Key.Zero()
}

// DeriveKey re-derives the key from the passphrase and verifies it against
// the stored digest, returning ErrInvalidPassword on mismatch.
func (sk *SecretKey) DeriveKey(password *[]byte) error {
	if err := sk.deriveKey(password); err != nil {
		return err
	}

	digest := sha256.Sum256(sk.Key[:])
	if subtle.ConstantTimeCompare(digest[:], sk.Parameters.Digest[:]) != 1 {
		return ErrInvalidPassword
	}

	return nil
}

// Encrypt encrypts the passed data with the derived key.
func (sk *SecretKey) Encrypt(in []byte) ([]byte, error) {
	return sk.Key.Encrypt(in)
}

// Decrypt decrypts the passed data with the derived key.
func (sk *SecretKey) Decrypt(in []byte) ([]byte, error) {
	return sk.Key.Decrypt(in)
}

// NewSecretKey returns a SecretKey derived from the passphrase using a fresh
// random salt and the given scrypt cost parameters.
func NewSecretKey(password *[]byte, n, r, p int) (*SecretKey, error) {
	sk := SecretKey{
		Key: (*CryptoKey)(&[KeySize]byte{}),
	}

	sk.Parameters.N = n
	sk.Parameters.R = r
	sk.Parameters.P = p
	_, err := io.ReadFull(prng, sk.Parameters.Salt[:])
	if err != nil {
		return nil, err
	}

	err = sk.deriveKey(password)
	if err != nil {
		return nil, err
	}

	sk.Parameters.Digest = sha256.Sum256(sk.Key[:])

	return &sk, nil
}
