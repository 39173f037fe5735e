// Package common defines shared constants and sentinel errors used across
// the layers of the password manager backend. Callers should use errors.Is
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorConflict     = errors.New("already exists")

	// Transport crypto errors. Wrong key and corrupted payload are
	// indistinguishable to callers.
	ErrInvalidKey        = errors.New("invalid key")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrCryptoFailure     = errors.New("crypto failure")
	ErrDecodingError     = errors.New("decoded bytes are not valid text")

	// Storage consistency errors.
	ErrStoreInconsistency = errors.New("store operation affected unexpected row count")
	ErrCacheInconsistency = errors.New("store write succeeded but cache refresh failed")
)

// ParamError tags a sentinel error with the name of the request parameter
// that caused it, so transport handlers can tell a missing login from a
// wrong password without parsing messages.
type ParamError struct {
	Param string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Param, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// NewParamError wraps err with the offending parameter name.
func NewParamError(param string, err error) error {
	return &ParamError{Param: param, Err: err}
}

// ParamOf extracts the tagged parameter name from err, if any.
func ParamOf(err error) (string, bool) {
	var pe *ParamError
	if errors.As(err, &pe) {
		return pe.Param, true
	}
	return "", false
}
