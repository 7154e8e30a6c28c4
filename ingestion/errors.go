package ingestion

import "errors"

var (
	// ErrProcessorRequired is returned when a pipeline is built without a processor.
	ErrProcessorRequired = errors.New("processor required")

	// ErrLoaderRequired is returned when a pipeline is built without a loader.
	ErrLoaderRequired = errors.New("loader required")

	// ErrLimiterRequired is returned when a pipeline is built without a rate limiter.
	ErrLimiterRequired = errors.New("rate limiter required")

	// ErrInvalidOption is returned for out-of-range option values.
	ErrInvalidOption = errors.New("invalid option")

	// ErrEmbeddingFailed indicates the embedder returned no usable vector.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrRunAborted indicates the run stopped before extraction finished.
	ErrRunAborted = errors.New("run aborted")

	// ErrLoadFailed indicates the bulk load failed and the run is incomplete.
	ErrLoadFailed = errors.New("load failed")

	// ErrRecordPanic wraps a panic recovered while processing one record.
	ErrRecordPanic = errors.New("record processing panicked")
)
