package keyring

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tapvault/tapsigner/internal/cfgutil"
	"github.com/tapvault/tapsigner/netparams"
)

const (
	// KeyFileName is the name of the key file inside the network
	// directory.
	KeyFileName = "keyring.db"
)

var (
	// ErrLoaded describes the error condition of attempting to load or
	// create a key ring when one has already been loaded.
	ErrLoaded = errors.New("key ring already loaded")

	// ErrNotLoaded describes the error condition of attempting to use a
	// key ring before one has been loaded.
	ErrNotLoaded = errors.New("key ring is not loaded")

	// ErrExists describes the error condition of attempting to create a
	// new key file when one already exists.
	ErrExists = errors.New("key file already exists")
)

// Loader implements the creating of new and opening of existing key rings.
// This is primarily intended for the RPC server, to allow the server to be
// running while the key file is still locked, and to synchronize loading
// with callers wanting to be notified once a ring becomes available.
type Loader struct {
	callbacks   []func(*KeyRing)
	chainParams *netparams.Params
	dirPath     string
	timeout     time.Duration
	scryptOpts  *ScryptOptions
	ring        *KeyRing
	mu          sync.Mutex
}

// LoaderOpt configures optional Loader behavior.
type LoaderOpt func(*Loader)

// WithScryptOptions overrides the scrypt cost parameters used when creating
// a new key file.  Mostly useful to speed up tests.
func WithScryptOptions(opts ScryptOptions) LoaderOpt {
	return func(l *Loader) {
		l.scryptOpts = &opts
	}
}

// NewLoader constructs a Loader with an associated network and key file
// directory.
func NewLoader(chainParams *netparams.Params, dirPath string,
	timeout time.Duration, opts ...LoaderOpt) *Loader {

	l := &Loader{
		chainParams: chainParams,
		dirPath:     dirPath,
		timeout:     timeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// onLoaded executes each added callback and prevents loader from loading any
// additional key rings.  Requires the mutex to be locked.
func (l *Loader) onLoaded(ring *KeyRing) {
	for _, fn := range l.callbacks {
		fn(ring)
	}

	l.ring = ring
	l.callbacks = nil
}

// RunAfterLoad adds a function to be executed when the loader creates or
// opens a key ring.  Functions are executed in a single goroutine in the
// order they are added.
func (l *Loader) RunAfterLoad(fn func(*KeyRing)) {
	l.mu.Lock()
	if l.ring != nil {
		ring := l.ring
		l.mu.Unlock()
		fn(ring)
	} else {
		l.callbacks = append(l.callbacks, fn)
		l.mu.Unlock()
	}
}

// CreateNewKeyRing creates a new key file sealing the master key derived
// from seed under privPassphrase, then opens it and returns the loaded ring.
func (l *Loader) CreateNewKeyRing(privPassphrase, seed []byte) (*KeyRing,
	error) {

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ring != nil {
		return nil, ErrLoaded
	}

	dbPath := filepath.Join(l.dirPath, KeyFileName)
	exists, err := cfgutil.FileExists(dbPath)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrExists
	}

	if err := os.MkdirAll(l.dirPath, 0700); err != nil {
		return nil, err
	}

	err = Create(
		dbPath, l.timeout, seed, privPassphrase,
		l.chainParams.Params, l.scryptOpts,
	)
	if err != nil {
		return nil, err
	}

	ring, err := Open(
		dbPath, l.timeout, privPassphrase, l.chainParams.Params,
	)
	if err != nil {
		return nil, err
	}

	l.onLoaded(ring)
	return ring, nil
}

// OpenExistingKeyRing opens the key file from the loader's directory and
// unseals it with the passed private passphrase.
func (l *Loader) OpenExistingKeyRing(privPassphrase []byte) (*KeyRing,
	error) {

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ring != nil {
		return nil, ErrLoaded
	}

	dbPath := filepath.Join(l.dirPath, KeyFileName)
	exists, err := cfgutil.FileExists(dbPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, keyRingError(
			ErrNoExists, "no key file found at "+dbPath, nil,
		)
	}

	ring, err := Open(
		dbPath, l.timeout, privPassphrase, l.chainParams.Params,
	)
	if err != nil {
		return nil, err
	}

	l.onLoaded(ring)
	return ring, nil
}

// LoadedKeyRing returns the loaded ring, if any, and a bool for whether the
// ring has been loaded or not.  If true, the ring pointer should be safe to
// dereference.
func (l *Loader) LoadedKeyRing() (*KeyRing, bool) {
	l.mu.Lock()
	ring := l.ring
	l.mu.Unlock()
	return ring, ring != nil
}

// UnloadKeyRing zeroes the loaded ring, if any, and removes it from the
// loader so a ring can be loaded again.
func (l *Loader) UnloadKeyRing() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ring == nil {
		return ErrNotLoaded
	}

	l.ring.Zero()
	l.ring = nil
	return nil
}
