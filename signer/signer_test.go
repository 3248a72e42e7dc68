package signer

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"github.com/tapvault/tapsigner/keyring"
)

var (
	testSeed = bytes.Repeat([]byte{0x5c}, 32)

	// leafKeyPath is the derivation path of the key used in the tapleaf
	// scripts of the test output.
	leafKeyPath = []uint32{
		hdkeychain.HardenedKeyStart + 86,
		hdkeychain.HardenedKeyStart + 1,
		hdkeychain.HardenedKeyStart,
		0, 0,
	}
)

// testHarness bundles a key ring together with a single-input packet
// spending a taproot output that commits to a two-leaf script tree built
// from the ring's keys.
type testHarness struct {
	t *testing.T

	ring    *keyring.KeyRing
	rootKey *btcec.PrivateKey
	leafKey *btcec.PrivateKey

	leaf1      txscript.TapLeaf
	leaf2      txscript.TapLeaf
	merkleRoot []byte
	outputKey  *btcec.PublicKey

	packet *psbt.Packet
}

// newTestHarness sets up a packet spending a taproot output whose internal
// key is the ring's master key and whose script tree has two leaves, both
// containing the key derived at leafKeyPath.
func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	ring, err := keyring.NewFromSeed(testSeed, &chaincfg.SimNetParams)
	require.NoError(t, err)

	rootKey, err := ring.DeriveKeyPath(nil)
	require.NoError(t, err)
	leafKey, err := ring.DeriveKeyPath(leafKeyPath)
	require.NoError(t, err)
	leafPubKey := schnorr.SerializePubKey(leafKey.PubKey())

	// Two distinct scripts, both requiring a signature from the leaf
	// key.
	script1, err := txscript.NewScriptBuilder().
		AddData(leafPubKey).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(t, err)
	script2, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_NOP).
		AddData(leafPubKey).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(t, err)

	leaf1 := txscript.NewBaseTapLeaf(script1)
	leaf2 := txscript.NewBaseTapLeaf(script2)
	tree := txscript.AssembleTaprootScriptTree(leaf1, leaf2)
	merkleRoot := tree.RootNode.TapHash()

	internalKey := rootKey.PubKey()
	outputKey := txscript.ComputeTaprootOutputKey(
		internalKey, merkleRoot[:],
	)
	pkScript, err := txscript.PayToTaprootScript(outputKey)
	require.NoError(t, err)

	prevTx := wire.NewMsgTx(2)
	prevTx.AddTxOut(wire.NewTxOut(100_000_000, pkScript))
	prevHash := prevTx.TxHash()

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(99_000_000, pkScript))

	packet, err := psbt.NewFromUnsignedTx(tx)
	require.NoError(t, err)

	leaf1Hash := leaf1.TapHash()
	leaf2Hash := leaf2.TapHash()

	proof1 := tree.LeafMerkleProofs[0].ToControlBlock(internalKey)
	controlBlock1, err := proof1.ToBytes()
	require.NoError(t, err)
	proof2 := tree.LeafMerkleProofs[1].ToControlBlock(internalKey)
	controlBlock2, err := proof2.ToBytes()
	require.NoError(t, err)

	pIn := &packet.Inputs[0]
	pIn.WitnessUtxo = prevTx.TxOut[0]
	pIn.TaprootInternalKey = schnorr.SerializePubKey(outputKey)
	pIn.TaprootMerkleRoot = merkleRoot[:]
	pIn.TaprootLeafScript = []*psbt.TaprootTapLeafScript{
		{
			ControlBlock: controlBlock1,
			Script:       script1,
			LeafVersion:  txscript.BaseLeafVersion,
		},
		{
			ControlBlock: controlBlock2,
			Script:       script2,
			LeafVersion:  txscript.BaseLeafVersion,
		},
	}
	pIn.TaprootBip32Derivation = []*psbt.TaprootBip32Derivation{{
		XOnlyPubKey:          leafPubKey,
		LeafHashes:           [][]byte{leaf1Hash[:], leaf2Hash[:]},
		MasterKeyFingerprint: ring.MasterFingerprint(),
		Bip32Path:            leafKeyPath,
	}}

	return &testHarness{
		t:          t,
		ring:       ring,
		rootKey:    rootKey,
		leafKey:    leafKey,
		leaf1:      leaf1,
		leaf2:      leaf2,
		merkleRoot: merkleRoot[:],
		outputKey:  outputKey,
		packet:     packet,
	}
}

// sigHashContext recreates the digest context for the harness packet so
// tests can independently verify produced signatures.
func (h *testHarness) sigHashContext() (*txscript.TxSigHashes,
	*txscript.MultiPrevOutFetcher) {

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, txIn := range h.packet.UnsignedTx.TxIn {
		fetcher.AddPrevOut(
			txIn.PreviousOutPoint, h.packet.Inputs[i].WitnessUtxo,
		)
	}

	return txscript.NewTxSigHashes(h.packet.UnsignedTx, fetcher), fetcher
}

// scriptSpendSig returns the script spend signature recorded for the given
// key and leaf, or nil if there is none.
func scriptSpendSig(pIn *psbt.PInput, xOnlyPubKey,
	leafHash []byte) *psbt.TaprootScriptSpendSig {

	for _, sig := range pIn.TaprootScriptSpendSig {
		if bytes.Equal(sig.XOnlyPubKey, xOnlyPubKey) &&
			bytes.Equal(sig.LeafHash, leafHash) {

			return sig
		}
	}

	return nil
}

// encodePacket serializes the packet so tests can assert no mutation took
// place across a failed signing attempt.
func encodePacket(t *testing.T, packet *psbt.Packet) string {
	t.Helper()

	encoded, err := packet.B64Encode()
	require.NoError(t, err)
	return encoded
}

// TestSignInputMissingPrevOut asserts that a packet missing the spent output
// of any input cannot be signed at all and is left untouched.
func TestSignInputMissingPrevOut(t *testing.T) {
	h := newTestHarness(t)
	h.packet.Inputs[0].WitnessUtxo = nil

	before := encodePacket(t, h.packet)
	err := SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.True(t, IsError(err, ErrPrevOutMissing))
	require.Equal(t, before, encodePacket(t, h.packet))
}

// TestSignInputInvalidIndex asserts that an out-of-range input index is
// rejected without mutating the packet.
func TestSignInputInvalidIndex(t *testing.T) {
	h := newTestHarness(t)

	before := encodePacket(t, h.packet)
	for _, idx := range []int{-1, 1, 42} {
		err := SignInput(h.ring, h.packet, idx, txscript.SigHashDefault)
		require.True(t, IsError(err, ErrInvalidInputIndex))
	}
	require.Equal(t, before, encodePacket(t, h.packet))
}

// TestSignInputKeySpend asserts that the key spend signature is produced
// with the tweaked master key and verifies against the key spend digest
// under the taproot output key.
func TestSignInputKeySpend(t *testing.T) {
	h := newTestHarness(t)

	err := SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)

	pIn := &h.packet.Inputs[0]
	require.Len(t, pIn.TaprootKeySpendSig, schnorr.SignatureSize)

	sigHashes, fetcher := h.sigHashContext()
	digest, err := txscript.CalcTaprootSignatureHash(
		sigHashes, txscript.SigHashDefault, h.packet.UnsignedTx, 0,
		fetcher,
	)
	require.NoError(t, err)

	sig, err := schnorr.ParseSignature(pIn.TaprootKeySpendSig)
	require.NoError(t, err)
	require.True(t, sig.Verify(digest, h.outputKey))
}

// TestSignInputSighashTypeAppended asserts that a non-default sighash type
// is appended to the key spend signature and recorded on each script spend
// signature.
func TestSignInputSighashTypeAppended(t *testing.T) {
	h := newTestHarness(t)

	hashType := txscript.SigHashSingle | txscript.SigHashAnyOneCanPay
	err := SignInput(h.ring, h.packet, 0, hashType)
	require.NoError(t, err)

	pIn := &h.packet.Inputs[0]
	require.Len(t, pIn.TaprootKeySpendSig, schnorr.SignatureSize+1)
	require.Equal(
		t, byte(hashType),
		pIn.TaprootKeySpendSig[schnorr.SignatureSize],
	)
	for _, sig := range pIn.TaprootScriptSpendSig {
		require.Equal(t, hashType, sig.SigHash)
		require.Len(t, sig.Signature, schnorr.SignatureSize)
	}
}

// TestOriginIntegrity asserts that a derivation entry whose recorded public
// key does not match the key re-derived along its path never produces a
// signature, without raising an error.
func TestOriginIntegrity(t *testing.T) {
	h := newTestHarness(t)
	pIn := &h.packet.Inputs[0]

	// Corrupt the recorded public key of the only derivation entry.  The
	// fingerprint and path still match this ring.
	wrongKey, err := h.ring.DeriveKeyPath([]uint32{0, 1})
	require.NoError(t, err)
	pIn.TaprootBip32Derivation[0].XOnlyPubKey = schnorr.SerializePubKey(
		wrongKey.PubKey(),
	)

	err = SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)
	require.Empty(t, pIn.TaprootScriptSpendSig)
}

// TestForeignFingerprint asserts that entries recorded for a different
// master key are ignored entirely.
func TestForeignFingerprint(t *testing.T) {
	h := newTestHarness(t)
	pIn := &h.packet.Inputs[0]
	pIn.TaprootBip32Derivation[0].MasterKeyFingerprint++

	err := SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)
	require.Empty(t, pIn.TaprootScriptSpendSig)
}

// TestTweakCorrectness asserts that the key spend signature is produced if
// and only if tweaking the master key by the recorded script tree commitment
// yields the recorded output key.  Flipping a single bit of the commitment
// must silently omit the signature.
func TestTweakCorrectness(t *testing.T) {
	h := newTestHarness(t)

	err := SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)
	require.NotEmpty(t, h.packet.Inputs[0].TaprootKeySpendSig)

	h2 := newTestHarness(t)
	h2.packet.Inputs[0].TaprootMerkleRoot[17] ^= 0x01

	err = SignInput(h2.ring, h2.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)
	require.Empty(t, h2.packet.Inputs[0].TaprootKeySpendSig)
}

// TestPathExclusivity asserts that the key spend and script spend
// signatures of the same underlying key are never equal, since they sign
// different digests and the key spend additionally uses the tweaked key.
func TestPathExclusivity(t *testing.T) {
	h := newTestHarness(t)
	pIn := &h.packet.Inputs[0]

	// Add a derivation entry for the master key itself so the same key
	// signs both the key spend and a leaf.
	leaf1Hash := h.leaf1.TapHash()
	pIn.TaprootBip32Derivation = append(
		pIn.TaprootBip32Derivation, &psbt.TaprootBip32Derivation{
			XOnlyPubKey: schnorr.SerializePubKey(
				h.rootKey.PubKey(),
			),
			LeafHashes:           [][]byte{leaf1Hash[:]},
			MasterKeyFingerprint: h.ring.MasterFingerprint(),
			Bip32Path:            nil,
		},
	)

	err := SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)

	require.NotEmpty(t, pIn.TaprootKeySpendSig)
	leafSig := scriptSpendSig(
		pIn, schnorr.SerializePubKey(h.rootKey.PubKey()),
		leaf1Hash[:],
	)
	require.NotNil(t, leafSig)
	require.NotEqual(t, pIn.TaprootKeySpendSig, leafSig.Signature)
}

// TestIdempotentResigning asserts that signing the same input twice
// overwrites rather than duplicates each (public key, leaf) signature
// entry.
func TestIdempotentResigning(t *testing.T) {
	h := newTestHarness(t)
	pIn := &h.packet.Inputs[0]

	err := SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)
	require.Len(t, pIn.TaprootScriptSpendSig, 2)
	firstRun := append(
		[]*psbt.TaprootScriptSpendSig(nil),
		pIn.TaprootScriptSpendSig...,
	)

	err = SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)
	require.Len(t, pIn.TaprootScriptSpendSig, 2)

	// Deterministic nonces make the re-signed entries identical.
	require.Equal(t, firstRun, pIn.TaprootScriptSpendSig)
}

// TestSignInputTwoLeafScenario runs the full two-leaf flow with the key
// spend deliberately disabled: the recorded output key belongs to someone
// else, so only the two script spend signatures must appear, each verifiable
// against its own leaf digest with the untweaked leaf key.
func TestSignInputTwoLeafScenario(t *testing.T) {
	h := newTestHarness(t)
	pIn := &h.packet.Inputs[0]

	// Record a foreign output key so the key spend is skipped.
	otherKey, err := h.ring.DeriveKeyPath([]uint32{1, 2, 3})
	require.NoError(t, err)
	pIn.TaprootInternalKey = schnorr.SerializePubKey(otherKey.PubKey())

	err = SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)

	require.Empty(t, pIn.TaprootKeySpendSig)
	require.Len(t, pIn.TaprootScriptSpendSig, 2)

	sigHashes, fetcher := h.sigHashContext()
	leafPubKey := schnorr.SerializePubKey(h.leafKey.PubKey())
	for _, leaf := range []txscript.TapLeaf{h.leaf1, h.leaf2} {
		leafHash := leaf.TapHash()
		entry := scriptSpendSig(pIn, leafPubKey, leafHash[:])
		require.NotNil(t, entry)

		digest, err := txscript.CalcTapscriptSignaturehash(
			sigHashes, txscript.SigHashDefault,
			h.packet.UnsignedTx, 0, fetcher, leaf,
		)
		require.NoError(t, err)

		sig, err := schnorr.ParseSignature(entry.Signature)
		require.NoError(t, err)
		require.True(t, sig.Verify(digest, h.leafKey.PubKey()))
	}
}

// TestUnresolvableLeafHash asserts that a leaf hash with no matching leaf
// script attached to the input is skipped without error.
func TestUnresolvableLeafHash(t *testing.T) {
	h := newTestHarness(t)
	pIn := &h.packet.Inputs[0]

	// Drop the second leaf script while its hash stays listed in the
	// derivation entry.
	pIn.TaprootLeafScript = pIn.TaprootLeafScript[:1]

	err := SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)

	leaf1Hash := h.leaf1.TapHash()
	require.Len(t, pIn.TaprootScriptSpendSig, 1)
	require.Equal(
		t, leaf1Hash[:], pIn.TaprootScriptSpendSig[0].LeafHash,
	)
}

// TestKeySpendOnlyOutput asserts signing of an output without a script
// tree: no merkle root is recorded and the output key is the master key
// tweaked with an empty commitment.
func TestKeySpendOnlyOutput(t *testing.T) {
	h := newTestHarness(t)
	pIn := &h.packet.Inputs[0]

	outputKey := txscript.ComputeTaprootKeyNoScript(h.rootKey.PubKey())
	pkScript, err := txscript.PayToTaprootScript(outputKey)
	require.NoError(t, err)

	pIn.WitnessUtxo.PkScript = pkScript
	pIn.TaprootInternalKey = schnorr.SerializePubKey(outputKey)
	pIn.TaprootMerkleRoot = nil
	pIn.TaprootLeafScript = nil
	pIn.TaprootBip32Derivation = nil

	err = SignInput(h.ring, h.packet, 0, txscript.SigHashDefault)
	require.NoError(t, err)

	require.Len(t, pIn.TaprootKeySpendSig, schnorr.SignatureSize)
	require.Empty(t, pIn.TaprootScriptSpendSig)

	sigHashes, fetcher := h.sigHashContext()
	digest, err := txscript.CalcTaprootSignatureHash(
		sigHashes, txscript.SigHashDefault, h.packet.UnsignedTx, 0,
		fetcher,
	)
	require.NoError(t, err)

	sig, err := schnorr.ParseSignature(pIn.TaprootKeySpendSig)
	require.NoError(t, err)
	require.True(t, sig.Verify(digest, outputKey))
}
