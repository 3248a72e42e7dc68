package netparams

import "github.com/btcsuite/btcd/chaincfg"

// Params wraps the chain parameters of a bitcoin network together with the
// default port the signer RPC server listens on for that network.
type Params struct {
	*chaincfg.Params
	RPCServerPort string
}

// MainNetParams contains parameters specific to the main network.
var MainNetParams = Params{
	Params:        &chaincfg.MainNetParams,
	RPCServerPort: "8332",
}

// TestNet3Params contains parameters specific to the test network (version 3).
var TestNet3Params = Params{
	Params:        &chaincfg.TestNet3Params,
	RPCServerPort: "18332",
}

// SimNetParams contains parameters specific to the simulation test network.
var SimNetParams = Params{
	Params:        &chaincfg.SimNetParams,
	RPCServerPort: "18554",
}

// SigNetParams contains parameters specific to the signet test network.
var SigNetParams = Params{
	Params:        &chaincfg.SigNetParams,
	RPCServerPort: "38332",
}
