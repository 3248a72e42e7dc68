package keyring

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tapvault/tapsigner/internal/zero"
	"github.com/tapvault/tapsigner/snacl"
	bolt "go.etcd.io/bbolt"
)

var (
	// keyRingBucketName is the top level bucket holding the sealed master
	// key and its crypto parameters.
	keyRingBucketName = []byte("keyring")

	// cryptoParamsName is the key of the marshalled scrypt parameters.
	cryptoParamsName = []byte("cryptoparams")

	// masterKeyName is the key of the encrypted extended master key.
	masterKeyName = []byte("masterkey")

	// netName is the key of the network magic the key file was created
	// for.
	netName = []byte("net")
)

// ScryptOptions is used to hold the scrypt parameters needed when deriving
// new passphrase keys.
type ScryptOptions struct {
	N, R, P int
}

// DefaultScryptOptions is the default options used with scrypt.
var DefaultScryptOptions = ScryptOptions{
	N: snacl.DefaultN,
	R: snacl.DefaultR,
	P: snacl.DefaultP,
}

// FastScryptOptions are options suitable for testing only, where waiting on
// a real key derivation would dominate the run time.
var FastScryptOptions = ScryptOptions{
	N: 16,
	R: 8,
	P: 1,
}

// Create creates a new key file at dbPath sealing the master key derived
// from seed under the given private passphrase.  It fails if a file already
// exists at that location.
func Create(dbPath string, timeout time.Duration, seed, privPass []byte,
	params *chaincfg.Params, scryptOpts *ScryptOptions) error {

	masterKey, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return keyRingError(
			ErrKeyChain, "unable to create master key from seed",
			err,
		)
	}
	defer masterKey.Zero()

	if scryptOpts == nil {
		scryptOpts = &DefaultScryptOptions
	}
	secretKey, err := snacl.NewSecretKey(
		&privPass, scryptOpts.N, scryptOpts.R, scryptOpts.P,
	)
	if err != nil {
		return keyRingError(
			ErrCrypto, "unable to derive passphrase key", err,
		)
	}
	defer secretKey.Zero()

	serializedKey := []byte(masterKey.String())
	defer zero.Bytes(serializedKey)
	encryptedKey, err := secretKey.Encrypt(serializedKey)
	if err != nil {
		return keyRingError(
			ErrCrypto, "unable to encrypt master key", err,
		)
	}

	var netBytes [4]byte
	binary.LittleEndian.PutUint32(netBytes[:], uint32(params.Net))

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return keyRingError(
			ErrDatabase, "unable to create key file", err,
		)
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucket(keyRingBucketName)
		if err != nil {
			if errors.Is(err, bolt.ErrBucketExists) {
				return keyRingError(
					ErrAlreadyExists,
					"key file already initialized", nil,
				)
			}
			return err
		}

		err = bucket.Put(cryptoParamsName, secretKey.Marshal())
		if err != nil {
			return err
		}
		err = bucket.Put(masterKeyName, encryptedKey)
		if err != nil {
			return err
		}
		return bucket.Put(netName, netBytes[:])
	})
	if err != nil {
		var krErr KeyRingError
		if errors.As(err, &krErr) {
			return krErr
		}
		return keyRingError(
			ErrDatabase, "unable to store master key", err,
		)
	}

	log.Infof("Created new key file with master fingerprint lookup "+
		"pending unlock, network %v", params.Name)

	return nil
}

// Open opens an existing key file at dbPath, unseals the master key with the
// private passphrase and returns a ready to use KeyRing.
func Open(dbPath string, timeout time.Duration, privPass []byte,
	params *chaincfg.Params) (*KeyRing, error) {

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, keyRingError(
			ErrDatabase, "unable to open key file", err,
		)
	}
	defer db.Close()

	var cryptoParams, encryptedKey, netBytes []byte
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(keyRingBucketName)
		if bucket == nil {
			return keyRingError(
				ErrNoExists, "key file is not initialized",
				nil,
			)
		}

		// The slices returned by Get are only valid inside the
		// transaction.
		cryptoParams = copyBytes(bucket.Get(cryptoParamsName))
		encryptedKey = copyBytes(bucket.Get(masterKeyName))
		netBytes = copyBytes(bucket.Get(netName))
		return nil
	})
	if err != nil {
		var krErr KeyRingError
		if errors.As(err, &krErr) {
			return nil, krErr
		}
		return nil, keyRingError(
			ErrDatabase, "unable to read key file", err,
		)
	}
	if cryptoParams == nil || encryptedKey == nil || netBytes == nil {
		return nil, keyRingError(
			ErrNoExists, "key file is missing required fields",
			nil,
		)
	}

	if binary.LittleEndian.Uint32(netBytes) != uint32(params.Net) {
		return nil, keyRingError(
			ErrDatabase, "key file was created for a different "+
				"network", nil,
		)
	}

	var secretKey snacl.SecretKey
	if err := secretKey.Unmarshal(cryptoParams); err != nil {
		return nil, keyRingError(
			ErrCrypto, "unable to parse crypto parameters", err,
		)
	}
	if err := secretKey.DeriveKey(&privPass); err != nil {
		if errors.Is(err, snacl.ErrInvalidPassword) {
			return nil, keyRingError(
				ErrWrongPassphrase, "invalid passphrase for "+
					"key file", nil,
			)
		}
		return nil, keyRingError(
			ErrCrypto, "unable to derive passphrase key", err,
		)
	}
	defer secretKey.Zero()

	serializedKey, err := secretKey.Decrypt(encryptedKey)
	if err != nil {
		return nil, keyRingError(
			ErrCrypto, "unable to decrypt master key", err,
		)
	}
	defer zero.Bytes(serializedKey)

	masterKey, err := hdkeychain.NewKeyFromString(string(serializedKey))
	if err != nil {
		return nil, keyRingError(
			ErrKeyChain, "unable to parse master key", err,
		)
	}

	ring, err := New(masterKey)
	if err != nil {
		return nil, err
	}

	log.Infof("Opened key file for network %v, master fingerprint %08x",
		params.Name, ring.MasterFingerprint())

	return ring, nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
