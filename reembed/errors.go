package reembed

import "errors"

var (
	// ErrRepositoryRequired is returned when no repository is supplied.
	ErrRepositoryRequired = errors.New("reembed: repository is required")

	// ErrEmbedderRequired is returned when no embedder is supplied.
	ErrEmbedderRequired = errors.New("reembed: embedder is required")

	// ErrInvalidConfig is returned for non-positive batch, report or retry settings.
	ErrInvalidConfig = errors.New("reembed: invalid config")

	// ErrEmbeddingMismatch is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingMismatch = errors.New("reembed: embedding count mismatch")
)
