package signer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// signDigest computes the BIP-341 signature digest for the given input and
// returns a BIP-340 signature over it with the passed key.  A nil leaf
// selects the key spend digest, a non-nil leaf the script spend digest for
// that leaf.  Nonce derivation is deterministic, so signing the same digest
// with the same key always yields the same signature.
func signDigest(privKey *btcec.PrivateKey, hashType txscript.SigHashType,
	tx *wire.MsgTx, sigHashes *txscript.TxSigHashes, idx int,
	prevOutFetcher txscript.PrevOutputFetcher,
	leaf *txscript.TapLeaf) (*schnorr.Signature, error) {

	var (
		digest []byte
		err    error
	)
	if leaf == nil {
		digest, err = txscript.CalcTaprootSignatureHash(
			sigHashes, hashType, tx, idx, prevOutFetcher,
		)
	} else {
		digest, err = txscript.CalcTapscriptSignaturehash(
			sigHashes, hashType, tx, idx, prevOutFetcher, *leaf,
		)
	}
	if err != nil {
		return nil, signerError(
			ErrSighash, fmt.Sprintf("unable to compute signature "+
				"digest for input %d", idx), err,
		)
	}

	sig, err := schnorr.Sign(privKey, digest)
	if err != nil {
		return nil, signerError(
			ErrSighash, fmt.Sprintf("unable to sign digest for "+
				"input %d", idx), err,
		)
	}

	return sig, nil
}
