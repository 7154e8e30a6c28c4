package sources

import "errors"

var (
	// ErrMissingCredentials indicates an adapter has no API key configured.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrNotConfigured indicates an adapter has no endpoint configured.
	ErrNotConfigured = errors.New("source not configured")

	// ErrUnexpectedStatus indicates a non-success HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrDecode indicates an upstream payload could not be decoded.
	ErrDecode = errors.New("decode failed")

	// ErrNotFound indicates a lookup step returned no usable identifier.
	ErrNotFound = errors.New("lookup returned no results")

	// ErrInvalidOption indicates a bad constructor option.
	ErrInvalidOption = errors.New("invalid source option")
)
