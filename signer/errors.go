package signer

import "fmt"

// ErrorCode identifies a category of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrPrevOutMissing indicates that an input of the transaction being
	// signed has no spent output attached.  Taproot digests commit to
	// every spent output, so a single missing entry blocks signing of
	// all inputs.
	ErrPrevOutMissing ErrorCode = iota

	// ErrInvalidInputIndex indicates that the requested input index is
	// out of range for the packet.
	ErrInvalidInputIndex

	// ErrDerivation indicates that the key store failed to derive the
	// key needed for signing.
	ErrDerivation

	// ErrSighash indicates that computing or signing the signature
	// digest failed.  With a complete spent-output set this cannot
	// happen, so it points at malformed upstream data rather than a
	// condition the caller can fix and retry.
	ErrSighash
)

// errCodeStrings maps each error code to its human readable name.
var errCodeStrings = map[ErrorCode]string{
	ErrPrevOutMissing:    "ErrPrevOutMissing",
	ErrInvalidInputIndex: "ErrInvalidInputIndex",
	ErrDerivation:        "ErrDerivation",
	ErrSighash:           "ErrSighash",
}

// String returns the ErrorCode as a human readable name.
func (e ErrorCode) String() string {
	if s, ok := errCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen while signing a
// packet input.
type Error struct {
	ErrorCode   ErrorCode
	Description string
	Err         error
}

// Error satisfies the error interface and prints human readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying wrapped error, if any.
func (e Error) Unwrap() error {
	return e.Err
}

// signerError creates an Error given a set of arguments.
func signerError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether the error is an Error with a matching error code.
func IsError(err error, code ErrorCode) bool {
	e, ok := err.(Error)
	return ok && e.ErrorCode == code
}
