package config

import "errors"

var (
	// ErrMissingSetting is returned by Validate when a required value is empty.
	ErrMissingSetting = errors.New("missing required setting")

	// ErrInvalidSetting is returned for values outside their allowed range.
	ErrInvalidSetting = errors.New("invalid setting")

	// ErrReadFile wraps failures to read or decode a YAML config file.
	ErrReadFile = errors.New("reading config file")
)
