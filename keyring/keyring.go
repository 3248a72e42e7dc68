// Package keyring provides an encrypted-at-rest store for a single BIP32
// master key along with hardened/non-hardened child key derivation for
// signing.
package keyring

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightninglabs/neutrino/cache/lru"
)

// defaultPrivKeyCacheSize is the number of derived private keys kept in
// memory so that repeated signing along the same paths does not pay the
// derivation cost every time.
const defaultPrivKeyCacheSize = 100

// cachedKey wraps a derived private key for use in the derivation cache.
type cachedKey struct {
	key *btcec.PrivateKey
}

// Size returns the number of cache slots the entry occupies.
func (c *cachedKey) Size() (uint64, error) {
	return 1, nil
}

// KeyRing holds an unlocked extended master key in memory and derives child
// keys from it on demand.  All methods are safe for concurrent use.
type KeyRing struct {
	masterKey   *hdkeychain.ExtendedKey
	fingerprint uint32

	privKeyCache *lru.Cache[string, *cachedKey]

	mtx sync.RWMutex
}

// New creates a KeyRing around the passed extended private key.  The key must
// be a private master key at depth zero, since the stored fingerprint and
// derivation paths are defined relative to the root.
func New(masterKey *hdkeychain.ExtendedKey) (*KeyRing, error) {
	if !masterKey.IsPrivate() {
		return nil, keyRingError(
			ErrKeyChain, "master key is not a private key", nil,
		)
	}

	pubKey, err := masterKey.ECPubKey()
	if err != nil {
		return nil, keyRingError(
			ErrKeyChain, "unable to derive master pubkey", err,
		)
	}

	// The master fingerprint is the first four bytes of the HASH160 of
	// the master public key, interpreted as a little-endian integer.
	fingerprint := binary.LittleEndian.Uint32(
		btcutil.Hash160(pubKey.SerializeCompressed())[:4],
	)

	return &KeyRing{
		masterKey:   masterKey,
		fingerprint: fingerprint,
		privKeyCache: lru.NewCache[string, *cachedKey](
			defaultPrivKeyCacheSize,
		),
	}, nil
}

// NewFromSeed creates a KeyRing with a fresh master key generated from the
// passed seed for the given network.
func NewFromSeed(seed []byte, params *chaincfg.Params) (*KeyRing, error) {
	masterKey, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, keyRingError(
			ErrKeyChain, "unable to create master key from seed",
			err,
		)
	}

	return New(masterKey)
}

// MasterFingerprint returns the fingerprint identifying the master key of
// this ring.
func (r *KeyRing) MasterFingerprint() uint32 {
	return r.fingerprint
}

// MasterPubKey returns the neutered master key, suitable for export to the
// coordinator that constructs transactions for this signer.
func (r *KeyRing) MasterPubKey() (*hdkeychain.ExtendedKey, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	pubKey, err := r.masterKey.Neuter()
	if err != nil {
		return nil, keyRingError(
			ErrKeyChain, "unable to neuter master key", err,
		)
	}

	return pubKey, nil
}

// DeriveKeyPath derives the private key at the given BIP32 path below the
// master key.  Hardened path components are indicated by indexes at or above
// hdkeychain.HardenedKeyStart.  An error is returned when any step of the
// path hits a defined-invalid child key.
func (r *KeyRing) DeriveKeyPath(path []uint32) (*btcec.PrivateKey, error) {
	cacheKey := pathString(path)

	r.mtx.RLock()
	cached, err := r.privKeyCache.Get(cacheKey)
	if err == nil {
		r.mtx.RUnlock()
		return cached.key, nil
	}
	r.mtx.RUnlock()

	r.mtx.Lock()
	defer r.mtx.Unlock()

	key := r.masterKey
	for _, index := range path {
		key, err = key.Derive(index)
		if err != nil {
			return nil, keyRingError(
				ErrKeyChain, fmt.Sprintf("unable to derive "+
					"child at path %s", cacheKey), err,
			)
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, keyRingError(
			ErrKeyChain, fmt.Sprintf("unable to extract private "+
				"key at path %s", cacheKey), err,
		)
	}

	_, _ = r.privKeyCache.Put(cacheKey, &cachedKey{key: privKey})

	return privKey, nil
}

// Zero clears the master key material from memory.  The ring must not be
// used afterwards.
func (r *KeyRing) Zero() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.masterKey.Zero()
	r.privKeyCache = lru.NewCache[string, *cachedKey](
		defaultPrivKeyCacheSize,
	)
}

// pathString renders a derivation path in the usual m/0'/1/2 notation, which
// doubles as the derivation cache key.
func pathString(path []uint32) string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, index := range path {
		sb.WriteString("/")
		if index >= hdkeychain.HardenedKeyStart {
			sb.WriteString(strconv.FormatUint(
				uint64(index-hdkeychain.HardenedKeyStart), 10,
			))
			sb.WriteString("'")
		} else {
			sb.WriteString(strconv.FormatUint(uint64(index), 10))
		}
	}

	return sb.String()
}
