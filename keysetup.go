package main

import (
	"fmt"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/tapvault/tapsigner/internal/prompt"
	"github.com/tapvault/tapsigner/keyring"
)

// networkDir returns the directory name of a network directory to hold the
// key file.
func networkDir(dataDir string, chainParams *chaincfg.Params) string {
	netname := chainParams.Name

	// For now, we must always name the testnet data directory as
	// "testnet" and not "testnet3" or any other version, as the
	// chaincfg testnet3 parameters will likely be switched to being
	// named "testnet3" in the future.  This is done to future proof
	// that change, and an upgrade plan to move the testnet3 data
	// directory can be worked out later.
	if chainParams.Net == wire.TestNet3 {
		netname = "testnet"
	}

	return filepath.Join(dataDir, netname)
}

// createKeyRing prompts the user for a private passphrase, generates a fresh
// seed and creates the key file sealing the resulting master key.  The
// extended public key is printed so it can be imported into the coordinator
// that builds transactions for this signer.
func createKeyRing(cfg *config) error {
	netDir := networkDir(cfg.AppDataDir, activeNet.Params)
	loader := keyring.NewLoader(activeNet, netDir, cfg.DBTimeout)

	privPass, err := prompt.PrivatePass(true)
	if err != nil {
		return err
	}

	seed, err := prompt.Seed()
	if err != nil {
		return err
	}

	fmt.Println("Creating the key file...")
	ring, err := loader.CreateNewKeyRing(privPass, seed)
	if err != nil {
		return err
	}

	xpub, err := ring.MasterPubKey()
	if err != nil {
		return err
	}
	fmt.Printf("Master public key: %s\n", xpub)
	fmt.Printf("Master key fingerprint: %08x\n", ring.MasterFingerprint())

	if err := loader.UnloadKeyRing(); err != nil {
		return err
	}
	fmt.Println("The key file has been created successfully.")
	return nil
}

// openKeyRing prompts for the private passphrase and opens the key file
// through the loader.
func openKeyRing(loader *keyring.Loader) error {
	privPass, err := prompt.PrivatePass(false)
	if err != nil {
		return err
	}

	_, err = loader.OpenExistingKeyRing(privPass)
	return err
}
