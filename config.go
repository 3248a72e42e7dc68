package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/tapvault/tapsigner/internal/cfgutil"
	"github.com/tapvault/tapsigner/keyring"
	"github.com/tapvault/tapsigner/netparams"
)

const (
	defaultConfigFilename = "tapsigner.conf"
	defaultDebugLevel     = "info"
	defaultDBTimeout      = 60 * time.Second
)

var (
	defaultAppDataDir = btcutil.AppDataDir("tapsigner", false)
	defaultConfigFile = filepath.Join(
		defaultAppDataDir, defaultConfigFilename,
	)

	// activeNet is the network the signer operates on.  Set during
	// configuration loading.
	activeNet = &netparams.MainNetParams
)

type config struct {
	// General application behavior.
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	Create        bool   `long:"create" description:"Create the key file if it does not exist"`
	AppDataDir    string `short:"A" long:"appdata" description:"Application data directory for the key file, config and logs"`
	TestNet3      bool   `long:"testnet" description:"Use the test Bitcoin network (version 3) (default mainnet)"`
	SimNet        bool   `long:"simnet" description:"Use the simulation test network (default mainnet)"`
	SigNet        bool   `long:"signet" description:"Use the signet test network (default mainnet)"`
	NoInitialLoad bool   `long:"noinitialload" description:"Defer opening the key file on startup; the RPC server refuses signing until it is opened"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	// Key file options.
	DBTimeout time.Duration `long:"dbtimeout" description:"The timeout value to use when opening the key file"`

	// RPC server options.
	RPCListeners []string `long:"rpclisten" description:"Listen for RPC connections on this interface/port (default port: 8332, testnet: 18332, simnet: 18554, signet: 38332)"`
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// A --create flag handles the key file creation flow and exits the process
// once finished.
func loadConfig() (*config, []string, error) {
	cfg := config{
		ConfigFile: defaultConfigFile,
		AppDataDir: defaultAppDataDir,
		DebugLevel: defaultDebugLevel,
		DBTimeout:  defaultDBTimeout,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		preParser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	appName := filepath.Base(os.Args[0])
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, version())
		os.Exit(0)
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	configFileExists, err := cfgutil.FileExists(preCfg.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if configFileExists {
		err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	if cfg.TestNet3 {
		activeNet = &netparams.TestNet3Params
		numNets++
	}
	if cfg.SimNet {
		activeNet = &netparams.SimNetParams
		numNets++
	}
	if cfg.SigNet {
		activeNet = &netparams.SigNetParams
		numNets++
	}
	if numNets > 1 {
		err := fmt.Errorf("%s: the testnet, signet and simnet params "+
			"can't be used together -- choose one", appName)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems",
			[]string{"TSGN", "KRNG", "SIGN", "RPCS"})
		os.Exit(0)
	}
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", appName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Default to listening only on localhost, this process holds key
	// material.
	if len(cfg.RPCListeners) == 0 {
		cfg.RPCListeners = []string{
			"localhost:" + activeNet.RPCServerPort,
		}
	}
	cfg.RPCListeners, err = cfgutil.NormalizeAddresses(
		cfg.RPCListeners, activeNet.RPCServerPort,
	)
	if err != nil {
		err := fmt.Errorf("%s: invalid rpclisten address: %v",
			appName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Handle key file creation or report a missing key file before the
	// server starts up.
	netDir := networkDir(cfg.AppDataDir, activeNet.Params)
	dbPath := filepath.Join(netDir, keyring.KeyFileName)
	dbFileExists, err := cfgutil.FileExists(dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	if cfg.Create {
		if dbFileExists {
			err := fmt.Errorf("the key file `%v` already exists",
				dbPath)
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}

		if err := createKeyRing(&cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to create the key "+
				"file: %v\n", err)
			return nil, nil, err
		}

		// The process is done after the key file was created.
		os.Exit(0)
	} else if !dbFileExists && !cfg.NoInitialLoad {
		err := fmt.Errorf("the key file does not exist, run with " +
			"the --create option to initialize and create it")
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}
