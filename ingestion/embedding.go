package ingestion

import (
	"context"
	"fmt"

	"github.com/poiesic/wayfarer/core"
)

// embed attaches a vector for ProcessedText. Failures are logged and leave
// the embedding absent; there is no retry here.
func (p *Processor) embed(ctx context.Context, r *core.Record) {
	if p.embedder == nil || r.ProcessedText == "" {
		return
	}

	ectx, cancel := context.WithTimeout(ctx, p.embedTimeout)
	defer cancel()

	vector, err := p.embedder.EmbedText(ectx, r.ProcessedText)
	if err == nil && len(vector) == 0 {
		err = fmt.Errorf("%w: empty vector", ErrEmbeddingFailed)
	}
	if err != nil {
		p.logger.Error("error generating embedding", "title", r.Title, "err", err)
		return
	}
	r.Embedding = vector
}
