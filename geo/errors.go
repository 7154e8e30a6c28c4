package geo

import "errors"

var (
	// ErrGeocodeFailed wraps transport, status and decoding failures.
	ErrGeocodeFailed = errors.New("geocoding failed")

	// ErrNoResults indicates the service found no match for the address.
	ErrNoResults = errors.New("no geocoding results")

	// ErrInvalidOption indicates a bad constructor option.
	ErrInvalidOption = errors.New("invalid geocoder option")
)
