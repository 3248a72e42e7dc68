// Hand-maintained message definitions for signer.proto.  Keep in sync with
// the proto file when changing the service.

package signerrpc

import (
	proto "github.com/golang/protobuf/proto"
)

type SignPsbtRequest struct {
	// The serialized partially signed transaction.
	FundedPsbt []byte `protobuf:"bytes,1,opt,name=funded_psbt,json=fundedPsbt,proto3" json:"funded_psbt,omitempty"`

	// The index of the input to sign.
	InputIndex uint32 `protobuf:"varint,2,opt,name=input_index,json=inputIndex,proto3" json:"input_index,omitempty"`

	// The sighash type to sign with.  Zero selects the default taproot
	// sighash.
	SighashType uint32 `protobuf:"varint,3,opt,name=sighash_type,json=sighashType,proto3" json:"sighash_type,omitempty"`
}

func (m *SignPsbtRequest) Reset()         { *m = SignPsbtRequest{} }
func (m *SignPsbtRequest) String() string { return proto.CompactTextString(m) }
func (*SignPsbtRequest) ProtoMessage()    {}

func (m *SignPsbtRequest) GetFundedPsbt() []byte {
	if m != nil {
		return m.FundedPsbt
	}
	return nil
}

func (m *SignPsbtRequest) GetInputIndex() uint32 {
	if m != nil {
		return m.InputIndex
	}
	return 0
}

func (m *SignPsbtRequest) GetSighashType() uint32 {
	if m != nil {
		return m.SighashType
	}
	return 0
}

type SignPsbtResponse struct {
	// The serialized packet with the produced signatures attached.
	SignedPsbt []byte `protobuf:"bytes,1,opt,name=signed_psbt,json=signedPsbt,proto3" json:"signed_psbt,omitempty"`
}

func (m *SignPsbtResponse) Reset()         { *m = SignPsbtResponse{} }
func (m *SignPsbtResponse) String() string { return proto.CompactTextString(m) }
func (*SignPsbtResponse) ProtoMessage()    {}

func (m *SignPsbtResponse) GetSignedPsbt() []byte {
	if m != nil {
		return m.SignedPsbt
	}
	return nil
}

type MasterPubKeyRequest struct {
}

func (m *MasterPubKeyRequest) Reset()         { *m = MasterPubKeyRequest{} }
func (m *MasterPubKeyRequest) String() string { return proto.CompactTextString(m) }
func (*MasterPubKeyRequest) ProtoMessage()    {}

type MasterPubKeyResponse struct {
	// The base58 extended public key of the master key.
	Xpub string `protobuf:"bytes,1,opt,name=xpub,proto3" json:"xpub,omitempty"`

	// The fingerprint identifying the master key.
	MasterKeyFingerprint uint32 `protobuf:"varint,2,opt,name=master_key_fingerprint,json=masterKeyFingerprint,proto3" json:"master_key_fingerprint,omitempty"`
}

func (m *MasterPubKeyResponse) Reset()         { *m = MasterPubKeyResponse{} }
func (m *MasterPubKeyResponse) String() string { return proto.CompactTextString(m) }
func (*MasterPubKeyResponse) ProtoMessage()    {}

func (m *MasterPubKeyResponse) GetXpub() string {
	if m != nil {
		return m.Xpub
	}
	return ""
}

func (m *MasterPubKeyResponse) GetMasterKeyFingerprint() uint32 {
	if m != nil {
		return m.MasterKeyFingerprint
	}
	return 0
}
