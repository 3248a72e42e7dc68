package signer

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
)

// forEachMatchingKey invokes fn for every derivation entry of an input that
// this key store can produce a key for.  An entry matches when its recorded
// master fingerprint equals the store's and the key re-derived along the
// recorded path has the recorded x-only public key.  Entries that fail
// derivation or whose re-derived key differs are dropped without error, they
// belong to a different signer or are corrupt and must not be signed for
// either way.  Each matching entry is yielded exactly once, together with
// the leaf hashes it is allowed to sign.
func forEachMatchingKey(ring SecretKeyRing,
	derivations []*psbt.TaprootBip32Derivation,
	fn func(privKey *btcec.PrivateKey, leafHashes [][]byte) error) error {

	fingerprint := ring.MasterFingerprint()
	for _, derivation := range derivations {
		if derivation.MasterKeyFingerprint != fingerprint {
			continue
		}

		privKey, err := ring.DeriveKeyPath(derivation.Bip32Path)
		if err != nil {
			log.Debugf("Skipping derivation entry for key %x: %v",
				derivation.XOnlyPubKey, err)
			continue
		}

		derivedPubKey := schnorr.SerializePubKey(privKey.PubKey())
		if !bytes.Equal(derivedPubKey, derivation.XOnlyPubKey) {
			log.Debugf("Skipping derivation entry for key %x: "+
				"re-derived key %x does not match",
				derivation.XOnlyPubKey, derivedPubKey)
			continue
		}

		if err := fn(privKey, derivation.LeafHashes); err != nil {
			return err
		}
	}

	return nil
}
