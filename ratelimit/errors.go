package ratelimit

import "errors"

var (
	// ErrInvalidLimit indicates a non-positive request count or window.
	ErrInvalidLimit = errors.New("invalid rate limit")

	// ErrInvalidOption indicates a bad constructor option.
	ErrInvalidOption = errors.New("invalid limiter option")
)
