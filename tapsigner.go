package main

import (
	"os"
	"runtime"

	"github.com/tapvault/tapsigner/keyring"
)

var cfg *config

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Work around defer not working after os.Exit.
	if err := signerMain(); err != nil {
		os.Exit(1)
	}
}

// signerMain is a work-around main function that is required since deferred
// functions (such as log flushing) are not called with calls to os.Exit.
// Instead, main runs this function and checks for a non-nil error, at which
// point any defers have already run, and if the error is non-nil, the
// program can be exited with an error exit status.
func signerMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg

	log.Infof("Version %s", version())

	netDir := networkDir(cfg.AppDataDir, activeNet.Params)
	log.Infof("Using network directory %s on %s", netDir,
		activeNet.Name)

	loader := keyring.NewLoader(activeNet, netDir, cfg.DBTimeout)

	// The RPC server comes up before the key file is opened so a stuck
	// passphrase prompt never blocks remote health checks.  Signing
	// requests fail with a precondition error until the ring loads.
	rpcServer, err := startRPCServer(loader)
	if err != nil {
		log.Errorf("Unable to create RPC server: %v", err)
		return err
	}

	loader.RunAfterLoad(func(ring *keyring.KeyRing) {
		log.Infof("Key ring loaded, master fingerprint %08x",
			ring.MasterFingerprint())
	})

	if !cfg.NoInitialLoad {
		// Open the key file now, prompting for the passphrase.
		if err := openKeyRing(loader); err != nil {
			log.Errorf("Unable to open key file: %v", err)
			return err
		}
	}

	// Shut down the RPC server before zeroing the loaded keys so no
	// signing request observes a cleared ring.
	addInterruptHandler(func() {
		rpcServer.GracefulStop()
		err := loader.UnloadKeyRing()
		if err != nil && err != keyring.ErrNotLoaded {
			log.Errorf("Failed to unload key ring: %v", err)
		}
	})

	<-interruptHandlersDone
	log.Info("Shutdown complete")
	return nil
}
