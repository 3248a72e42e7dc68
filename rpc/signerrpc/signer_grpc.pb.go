// Hand-maintained gRPC bindings for signer.proto.  Keep in sync with the
// proto file when changing the service.

package signerrpc

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

// SignerClient is the client API for the Signer service.
type SignerClient interface {
	// SignPsbt signs a single input of the passed packet with every
	// signature the loaded key ring is authorized to contribute and
	// returns the updated packet.
	SignPsbt(ctx context.Context, in *SignPsbtRequest,
		opts ...grpc.CallOption) (*SignPsbtResponse, error)

	// MasterPubKey returns the extended public key and fingerprint of
	// the loaded master key.
	MasterPubKey(ctx context.Context, in *MasterPubKeyRequest,
		opts ...grpc.CallOption) (*MasterPubKeyResponse, error)
}

type signerClient struct {
	cc grpc.ClientConnInterface
}

// NewSignerClient creates a client for the Signer service using the given
// connection.
func NewSignerClient(cc grpc.ClientConnInterface) SignerClient {
	return &signerClient{cc}
}

func (c *signerClient) SignPsbt(ctx context.Context, in *SignPsbtRequest,
	opts ...grpc.CallOption) (*SignPsbtResponse, error) {

	out := new(SignPsbtResponse)
	err := c.cc.Invoke(
		ctx, "/signerrpc.Signer/SignPsbt", in, out, opts...,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *signerClient) MasterPubKey(ctx context.Context,
	in *MasterPubKeyRequest, opts ...grpc.CallOption) (
	*MasterPubKeyResponse, error) {

	out := new(MasterPubKeyResponse)
	err := c.cc.Invoke(
		ctx, "/signerrpc.Signer/MasterPubKey", in, out, opts...,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SignerServer is the server API for the Signer service.  Implementations
// should embed UnimplementedSignerServer for forward compatibility.
type SignerServer interface {
	// SignPsbt signs a single input of the passed packet with every
	// signature the loaded key ring is authorized to contribute and
	// returns the updated packet.
	SignPsbt(context.Context, *SignPsbtRequest) (*SignPsbtResponse, error)

	// MasterPubKey returns the extended public key and fingerprint of
	// the loaded master key.
	MasterPubKey(context.Context, *MasterPubKeyRequest) (
		*MasterPubKeyResponse, error)
}

// UnimplementedSignerServer should be embedded to have forward compatible
// implementations.
type UnimplementedSignerServer struct {
}

func (UnimplementedSignerServer) SignPsbt(context.Context,
	*SignPsbtRequest) (*SignPsbtResponse, error) {

	return nil, status.Errorf(
		codes.Unimplemented, "method SignPsbt not implemented",
	)
}

func (UnimplementedSignerServer) MasterPubKey(context.Context,
	*MasterPubKeyRequest) (*MasterPubKeyResponse, error) {

	return nil, status.Errorf(
		codes.Unimplemented, "method MasterPubKey not implemented",
	)
}

// RegisterSignerServer registers the Signer service implementation with the
// given gRPC server.
func RegisterSignerServer(s grpc.ServiceRegistrar, srv SignerServer) {
	s.RegisterService(&Signer_ServiceDesc, srv)
}

func _Signer_SignPsbt_Handler(srv interface{}, ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor) (interface{}, error) {

	in := new(SignPsbtRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SignerServer).SignPsbt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/signerrpc.Signer/SignPsbt",
	}
	handler := func(ctx context.Context, req interface{}) (interface{},
		error) {

		return srv.(SignerServer).SignPsbt(ctx, req.(*SignPsbtRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Signer_MasterPubKey_Handler(srv interface{}, ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor) (interface{}, error) {

	in := new(MasterPubKeyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SignerServer).MasterPubKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/signerrpc.Signer/MasterPubKey",
	}
	handler := func(ctx context.Context, req interface{}) (interface{},
		error) {

		return srv.(SignerServer).MasterPubKey(
			ctx, req.(*MasterPubKeyRequest),
		)
	}
	return interceptor(ctx, in, info, handler)
}

// Signer_ServiceDesc is the grpc.ServiceDesc for the Signer service.
var Signer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "signerrpc.Signer",
	HandlerType: (*SignerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SignPsbt",
			Handler:    _Signer_SignPsbt_Handler,
		},
		{
			MethodName: "MasterPubKey",
			Handler:    _Signer_MasterPubKey_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "signer.proto",
}
