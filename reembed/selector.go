package reembed

import (
	"context"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

// candidate is a record selected for embedding.
type candidate struct {
	id   core.ID
	text string
}

// Selection decides which stored records are embedded.
type Selection struct {
	// All re-embeds every record regardless of its current vector.
	All bool
	// Dimensions, when positive, also selects records whose vector length differs.
	Dimensions int
}

// Wants reports whether r should be embedded.
func (s Selection) Wants(r *core.StoredRecord) bool {
	switch {
	case s.All:
		return true
	case len(r.Embedding) == 0:
		return true
	case s.Dimensions > 0 && len(r.Embedding) != s.Dimensions:
		return true
	}
	return false
}

// collect walks the repository in creation order and returns the selected
// records along with the number skipped for having no text.
func collect(ctx context.Context, repo storage.Repository, sel Selection) ([]candidate, int, error) {
	var (
		out     []candidate
		skipped int
	)
	err := repo.ForEach(ctx, func(r *core.StoredRecord) error {
		if !sel.Wants(r) {
			return nil
		}
		text := embeddingText(r)
		if text == "" {
			skipped++
			return nil
		}
		out = append(out, candidate{id: r.ID, text: text})
		return nil
	})
	return out, skipped, err
}

// batches splits items into consecutive groups of at most size.
func batches(items []candidate, size int) [][]candidate {
	var out [][]candidate
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
