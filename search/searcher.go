package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

// DefaultMinSimilarity is the cosine similarity a record needs to count as a semantic hit.
const DefaultMinSimilarity = 0.60

// Score weights.
const (
	bothWeight     = 1.5
	categoryScore  = 1.2
	verbatimBoost  = 0.3
	semanticWeight = 1.0
)

// Result is one ranked record.
type Result struct {
	Record     *core.StoredRecord
	Score      float32
	Similarity float32
}

// Searcher ranks stored records against a query.
type Searcher struct {
	repo          storage.Repository
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the semantic hit threshold, in [0, 1].
func WithMinSimilarity(v float32) Option {
	return func(s *Searcher) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: min similarity %v", ErrInvalidOption, v)
		}
		s.minSimilarity = v
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repo storage.Repository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		repo:          repo,
		embedder:      embedder,
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")
	return s, nil
}

// FindSimilar returns up to maxHits records matching f, ranked by relevance.
//
// A record scores when it is a semantic hit, names a queried category, or
// both. Both scores 1.5x its similarity; category only scores 1.2; semantic
// only scores its similarity. Records containing every query word gain 0.3.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int, f storage.Filter) ([]Result, error) {
	if maxHits <= 0 {
		return []Result{}, nil
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	words := tokenize(query)

	var results []Result
	err = s.repo.ForEach(ctx, func(r *core.StoredRecord) error {
		if !matches(f, r) {
			return nil
		}

		similarity := cosine(embedding, r.Embedding)
		semantic := similarity >= s.minSimilarity
		category := namesCategory(r.Categories, words)

		var score float32
		switch {
		case semantic && category:
			score = bothWeight * similarity
		case category:
			score = categoryScore
		case semantic:
			score = semanticWeight * similarity
		default:
			return nil
		}
		if containsAll(r.Title+" "+r.Description, words) {
			score += verbatimBoost
		}
		results = append(results, Result{Record: r, Score: score, Similarity: similarity})
		return nil
	})
	if err != nil {
		s.logger.Error("error scanning records", "err", err)
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	s.logger.Debug("search complete", "query", query, "hits", len(results))
	return results, nil
}

func matches(f storage.Filter, r *core.StoredRecord) bool {
	if f.SourceType != "" && r.SourceType != f.SourceType {
		return false
	}
	if !f.CreatedSince.IsZero() && r.CreatedAt.Before(f.CreatedSince) {
		return false
	}
	return true
}

// cosine returns the cosine similarity of a and b, or 0 when either is
// empty, zero or the lengths differ.
func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
