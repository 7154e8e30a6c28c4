package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/retry"
	"github.com/poiesic/wayfarer/storage"
)

// BatchProcessor embeds one batch of records and writes the vectors back.
type BatchProcessor struct {
	repo           storage.Repository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries bounds the embedding attempts per batch; retryBaseDelay is the
// first backoff interval.
func NewBatchProcessor(repo storage.Repository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the batch and updates each record.
// It returns how many records were updated; records deleted since selection
// are not counted.
func (bp *BatchProcessor) Process(ctx context.Context, batch []candidate) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.text
	}

	var embeddings [][]float32
	err := retry.WithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("embedding batch after %d attempts: %w", bp.maxRetries, err)
	}
	if len(embeddings) != len(batch) {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(batch), len(embeddings))
	}

	updated := 0
	for i, c := range batch {
		if len(embeddings[i]) == 0 {
			continue
		}
		ok, err := bp.repo.Update(ctx, c.id, core.RecordPatch{Embedding: NormalizeVector(embeddings[i])})
		if err != nil {
			return updated, fmt.Errorf("updating record %d: %w", c.id, err)
		}
		if ok {
			updated++
		}
	}
	return updated, nil
}
