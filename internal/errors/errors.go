package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth-flow client core
var (
	// Envelope / ingestion errors
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownStatus     = errors.New("unknown envelope status")

	// Transport errors
	ErrUnexpectedResponse = errors.New("unexpected response")

	// Session errors
	ErrNoSessionToken = errors.New("no session token")
	ErrNoAccessToken  = errors.New("no access token")

	// Provider errors
	ErrStateMismatch = errors.New("state mismatch")
	ErrNonceMismatch = errors.New("nonce mismatch")
	ErrNoIDToken     = errors.New("no id_token in provider response")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
