package keyring

import "fmt"

// ErrorCode identifies a category of error.
type ErrorCode int

// These constants are used to identify a specific KeyRingError.
const (
	// ErrDatabase indicates a generic error with the underlying key file
	// database.  The wrapped error gives the specific cause.
	ErrDatabase ErrorCode = iota

	// ErrAlreadyExists indicates that a key file already exists at the
	// requested location.
	ErrAlreadyExists

	// ErrNoExists indicates that no key file exists at the requested
	// location.
	ErrNoExists

	// ErrCrypto indicates a generic failure while encrypting or
	// decrypting stored key material.
	ErrCrypto

	// ErrWrongPassphrase indicates that the supplied private passphrase
	// does not match the one the key file was sealed with.
	ErrWrongPassphrase

	// ErrKeyChain indicates a failure while deriving a key along a BIP32
	// derivation path, such as hitting a defined-invalid child key.
	ErrKeyChain
)

// errCodeStrings maps each error code to its human readable name.
var errCodeStrings = map[ErrorCode]string{
	ErrDatabase:        "ErrDatabase",
	ErrAlreadyExists:   "ErrAlreadyExists",
	ErrNoExists:        "ErrNoExists",
	ErrCrypto:          "ErrCrypto",
	ErrWrongPassphrase: "ErrWrongPassphrase",
	ErrKeyChain:        "ErrKeyChain",
}

// String returns the ErrorCode as a human readable name.
func (e ErrorCode) String() string {
	if s, ok := errCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// KeyRingError provides a single type for errors that can happen during key
// ring operation.
type KeyRingError struct {
	ErrorCode   ErrorCode
	Description string
	Err         error
}

// Error satisfies the error interface and prints human readable errors.
func (e KeyRingError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying wrapped error, if any.
func (e KeyRingError) Unwrap() error {
	return e.Err
}

// keyRingError creates a KeyRingError given a set of arguments.
func keyRingError(c ErrorCode, desc string, err error) KeyRingError {
	return KeyRingError{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether the error is a KeyRingError with a matching error
// code.
func IsError(err error, code ErrorCode) bool {
	e, ok := err.(KeyRingError)
	return ok && e.ErrorCode == code
}
