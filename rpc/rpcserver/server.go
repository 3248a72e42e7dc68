// Package rpcserver implements the Signer gRPC service on top of a key ring
// loader.
package rpcserver

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/tapvault/tapsigner/keyring"
	"github.com/tapvault/tapsigner/rpc/signerrpc"
	"github.com/tapvault/tapsigner/signer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type signerServer struct {
	signerrpc.UnimplementedSignerServer
	loader *keyring.Loader
}

// StartSignerService creates an instance of the Signer service and registers
// it with the gRPC server.  The service answers requests as soon as the
// loader has a key ring loaded.
func StartSignerService(server *grpc.Server, loader *keyring.Loader) {
	signerrpc.RegisterSignerServer(server, &signerServer{loader: loader})
}

// loadedKeyRing fetches the key ring from the loader, translating an
// unloaded ring into the gRPC error the client can act on.
func (s *signerServer) loadedKeyRing() (*keyring.KeyRing, error) {
	ring, ok := s.loader.LoadedKeyRing()
	if !ok {
		return nil, status.Error(
			codes.FailedPrecondition, "key ring is not loaded",
		)
	}
	return ring, nil
}

func (s *signerServer) SignPsbt(_ context.Context,
	req *signerrpc.SignPsbtRequest) (*signerrpc.SignPsbtResponse, error) {

	ring, err := s.loadedKeyRing()
	if err != nil {
		return nil, err
	}

	packet, err := psbt.NewFromRawBytes(
		bytes.NewReader(req.FundedPsbt), false,
	)
	if err != nil {
		return nil, status.Errorf(
			codes.InvalidArgument, "unable to parse packet: %v",
			err,
		)
	}

	err = signer.SignInput(
		ring, packet, int(req.InputIndex),
		txscript.SigHashType(req.SighashType),
	)
	if err != nil {
		log.Errorf("Signing input %d failed: %v", req.InputIndex, err)
		return nil, translateSignerError(err)
	}

	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return nil, status.Errorf(
			codes.Internal, "unable to serialize packet: %v", err,
		)
	}

	return &signerrpc.SignPsbtResponse{SignedPsbt: buf.Bytes()}, nil
}

func (s *signerServer) MasterPubKey(_ context.Context,
	_ *signerrpc.MasterPubKeyRequest) (*signerrpc.MasterPubKeyResponse,
	error) {

	ring, err := s.loadedKeyRing()
	if err != nil {
		return nil, err
	}

	xpub, err := ring.MasterPubKey()
	if err != nil {
		return nil, status.Errorf(
			codes.Internal, "unable to export master pubkey: %v",
			err,
		)
	}

	return &signerrpc.MasterPubKeyResponse{
		Xpub:                 xpub.String(),
		MasterKeyFingerprint: ring.MasterFingerprint(),
	}, nil
}

// translateSignerError maps signing error codes onto gRPC status codes.
// Index and prevout problems are caller-fixable, everything else is reported
// as internal.
func translateSignerError(err error) error {
	switch {
	case signer.IsError(err, signer.ErrPrevOutMissing),
		signer.IsError(err, signer.ErrInvalidInputIndex):

		return status.Error(codes.InvalidArgument, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
