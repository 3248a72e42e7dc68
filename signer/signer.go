// Package signer implements offline signing of taproot inputs of a partially
// signed bitcoin transaction.  For every input it can produce the key spend
// signature with the tweaked master key as well as one script spend
// signature per tapleaf a locally derivable key is listed for.
package signer

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// SecretKeyRing is the interface a key store must implement for signing.
// Implementations must be safe for concurrent use.
type SecretKeyRing interface {
	// MasterFingerprint returns the fingerprint identifying the master
	// key, used to recognize which derivation entries this store is
	// responsible for.
	MasterFingerprint() uint32

	// DeriveKeyPath derives the private key at the given BIP32 path
	// below the master key.  The empty path yields the master key
	// itself.
	DeriveKeyPath(path []uint32) (*btcec.PrivateKey, error)
}

// SignInput signs the input at inputIndex of the packet with every signature
// the key ring is authorized to contribute, mutating that input in place.
// The caller must serialize concurrent calls operating on the same packet.
//
// The spent output of every input must be attached as a witness utxo since
// taproot signature digests commit to all of them.  If any is missing, or
// the index is out of range, an error is returned before any mutation
// happens.
func SignInput(ring SecretKeyRing, packet *psbt.Packet, inputIndex int,
	hashType txscript.SigHashType) error {

	tx := packet.UnsignedTx

	// Collect the spent outputs of all inputs up front.  This both
	// enforces the fail-before-mutation contract and gives the digest
	// computation the complete prevout set it commits to.
	prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, txIn := range tx.TxIn {
		pIn := packet.Inputs[i]
		if pIn.WitnessUtxo == nil {
			return signerError(
				ErrPrevOutMissing, fmt.Sprintf("input %d has "+
					"no witness utxo attached", i), nil,
			)
		}

		prevOutFetcher.AddPrevOut(
			txIn.PreviousOutPoint, pIn.WitnessUtxo,
		)
	}

	if inputIndex < 0 || inputIndex >= len(packet.Inputs) {
		return signerError(
			ErrInvalidInputIndex, fmt.Sprintf("packet has no "+
				"input at index %d", inputIndex), nil,
		)
	}
	pIn := &packet.Inputs[inputIndex]

	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	err := signKeySpend(
		ring, pIn, tx, sigHashes, inputIndex, prevOutFetcher,
		hashType,
	)
	if err != nil {
		return err
	}

	return signLeafSpends(
		ring, pIn, tx, sigHashes, inputIndex, prevOutFetcher,
		hashType,
	)
}

// signKeySpend adds the key spend signature for the input if the master key,
// tweaked by the input's script tree commitment, matches the recorded
// taproot output key.  A mismatch is not an error, the input then simply has
// a different key spend signer.
func signKeySpend(ring SecretKeyRing, pIn *psbt.PInput, tx *wire.MsgTx,
	sigHashes *txscript.TxSigHashes, idx int,
	prevOutFetcher txscript.PrevOutputFetcher,
	hashType txscript.SigHashType) error {

	if len(pIn.TaprootInternalKey) == 0 {
		return nil
	}

	rootKey, err := ring.DeriveKeyPath(nil)
	if err != nil {
		return signerError(
			ErrDerivation, "unable to derive master key", err,
		)
	}

	// An empty merkle root tweaks with no script contribution, which is
	// the correct commitment for a key-spend-only output.
	tweakedKey := txscript.TweakTaprootPrivKey(
		*rootKey, pIn.TaprootMerkleRoot,
	)
	tweakedPubKey := schnorr.SerializePubKey(tweakedKey.PubKey())
	if !bytes.Equal(tweakedPubKey, pIn.TaprootInternalKey) {
		log.Debugf("Input %d: tweaked key %x does not match "+
			"recorded output key %x, skipping key spend", idx,
			tweakedPubKey, pIn.TaprootInternalKey)
		return nil
	}

	sig, err := signDigest(
		tweakedKey, hashType, tx, sigHashes, idx, prevOutFetcher, nil,
	)
	if err != nil {
		return err
	}

	sigBytes := sig.Serialize()
	if hashType != txscript.SigHashDefault {
		sigBytes = append(sigBytes, byte(hashType))
	}
	pIn.TaprootKeySpendSig = sigBytes

	log.Debugf("Input %d: added key spend signature for output key %x",
		idx, tweakedPubKey)

	return nil
}

// signLeafSpends adds one script spend signature per (matching key, leaf)
// pair of the input's derivation table.  Script spend signatures always use
// the untweaked derived key.  Re-signing overwrites the previous signature
// for the same pair.
func signLeafSpends(ring SecretKeyRing, pIn *psbt.PInput, tx *wire.MsgTx,
	sigHashes *txscript.TxSigHashes, idx int,
	prevOutFetcher txscript.PrevOutputFetcher,
	hashType txscript.SigHashType) error {

	return forEachMatchingKey(
		ring, pIn.TaprootBip32Derivation,
		func(privKey *btcec.PrivateKey, leafHashes [][]byte) error {
			xOnlyPubKey := schnorr.SerializePubKey(
				privKey.PubKey(),
			)

			for _, leafHash := range leafHashes {
				leaf, ok := leafForHash(pIn, leafHash)
				if !ok {
					log.Debugf("Input %d: no leaf script "+
						"for leaf hash %x, skipping",
						idx, leafHash)
					continue
				}

				sig, err := signDigest(
					privKey, hashType, tx, sigHashes,
					idx, prevOutFetcher, &leaf,
				)
				if err != nil {
					return err
				}

				upsertScriptSpendSig(
					pIn, &psbt.TaprootScriptSpendSig{
						XOnlyPubKey: xOnlyPubKey,
						LeafHash:    leafHash,
						Signature:   sig.Serialize(),
						SigHash:     hashType,
					},
				)

				log.Debugf("Input %d: added script spend "+
					"signature for key %x, leaf %x", idx,
					xOnlyPubKey, leafHash)
			}

			return nil
		},
	)
}

// leafForHash resolves a leaf hash against the leaf scripts attached to the
// input.
func leafForHash(pIn *psbt.PInput, leafHash []byte) (txscript.TapLeaf, bool) {
	for _, leafScript := range pIn.TaprootLeafScript {
		leaf := txscript.NewTapLeaf(
			leafScript.LeafVersion, leafScript.Script,
		)
		hash := leaf.TapHash()
		if bytes.Equal(hash[:], leafHash) {
			return leaf, true
		}
	}

	return txscript.TapLeaf{}, false
}

// upsertScriptSpendSig adds a script spend signature to the input, replacing
// any existing signature for the same (public key, leaf hash) pair.
func upsertScriptSpendSig(pIn *psbt.PInput, sig *psbt.TaprootScriptSpendSig) {
	for i, existing := range pIn.TaprootScriptSpendSig {
		if bytes.Equal(existing.XOnlyPubKey, sig.XOnlyPubKey) &&
			bytes.Equal(existing.LeafHash, sig.LeafHash) {

			pIn.TaprootScriptSpendSig[i] = sig
			return
		}
	}

	pIn.TaprootScriptSpendSig = append(pIn.TaprootScriptSpendSig, sig)
}
