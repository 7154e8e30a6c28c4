package wayfarer

import "errors"

var (
	// ErrUnsupportedStore is returned for a store URL with an unknown scheme.
	ErrUnsupportedStore = errors.New("unsupported store url")

	// ErrEmbeddingsDisabled is returned when an operation needs an embedder
	// and none is configured.
	ErrEmbeddingsDisabled = errors.New("embeddings are disabled")
)
