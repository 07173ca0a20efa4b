// Package common defines shared constants and sentinel errors used across
// client and server layers of Stockpile. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrInvalidToken covers every reason a token is refused: bad signature,
	// expiry, malformed claims, unknown or revoked session, stored hash mismatch.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidArgument marks malformed input (bad email, short password).
	ErrInvalidArgument = errors.New("invalid argument")
)
