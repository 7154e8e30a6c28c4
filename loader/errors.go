package loader

import "errors"

var (
	// ErrRepositoryRequired is returned when a loader is built without a repository.
	ErrRepositoryRequired = errors.New("repository required")

	// ErrInvalidOption is returned for out-of-range option values.
	ErrInvalidOption = errors.New("invalid loader option")

	// ErrRejected indicates a record could not be transformed for storage.
	ErrRejected = errors.New("record rejected")
)
