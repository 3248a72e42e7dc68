package main

import (
	"net"

	"github.com/tapvault/tapsigner/keyring"
	"github.com/tapvault/tapsigner/rpc/rpcserver"
	"google.golang.org/grpc"
)

// startRPCServer creates the gRPC server, registers the Signer service
// backed by the loader and begins serving on all configured listen
// addresses.
func startRPCServer(loader *keyring.Loader) (*grpc.Server, error) {
	server := grpc.NewServer()
	rpcserver.StartSignerService(server, loader)

	for _, listenAddr := range cfg.RPCListeners {
		lis, err := net.Listen("tcp", listenAddr)
		if err != nil {
			log.Errorf("Cannot listen on %s: %v", listenAddr, err)
			return nil, err
		}

		go func() {
			rpcsLog.Infof("RPC server listening on %s",
				lis.Addr())
			if err := server.Serve(lis); err != nil {
				rpcsLog.Errorf("RPC server stopped: %v", err)
			}
		}()
	}

	return server, nil
}
