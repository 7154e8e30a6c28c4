package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/wayfarer/ai/mock"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
	"github.com/poiesic/wayfarer/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T, records ...*core.StoredRecord) storage.Repository {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	if len(records) > 0 {
		_, err = repo.InsertMany(context.Background(), records...)
		require.NoError(t, err)
	}
	return repo
}

// queryEmbedder returns vec for every query.
func queryEmbedder(vec []float32) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vec, nil
	}
	return m
}

func stored(title string, st core.SourceType, vec []float32, categories ...string) *core.StoredRecord {
	return &core.StoredRecord{
		Title:      title,
		SourceType: st,
		SourceURL:  "https://example.com/" + title,
		Categories: categories,
		Embedding:  vec,
	}
}

func titles(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.Title
	}
	return out
}

func TestNewSearcher(t *testing.T) {
	repo := newRepo(t)
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(repo, embedder)
		require.NoError(t, err)
		assert.Equal(t, float32(DefaultMinSimilarity), s.minSimilarity)
	})

	t.Run("with custom logger", func(t *testing.T) {
		_, err := NewSearcher(repo, embedder, WithLogger(slog.Default()))
		require.NoError(t, err)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		s, err := NewSearcher(repo, embedder, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, s.logger)
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewSearcher(nil, embedder)
		assert.Equal(t, ErrRepositoryRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(repo, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("similarity out of range", func(t *testing.T) {
		_, err := NewSearcher(repo, embedder, WithMinSimilarity(1.5))
		assert.ErrorIs(t, err, ErrInvalidOption)
	})
}

func TestFindSimilar_EmptyStore(t *testing.T) {
	s, err := NewSearcher(newRepo(t), queryEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	results, err := s.FindSimilar(context.Background(), "beach hotel", 10, storage.Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_Ranking(t *testing.T) {
	repo := newRepo(t,
		stored("Seaside Resort", core.SourceTypeAPI, []float32{1, 0}, "hotel"),
		stored("Harbor View", core.SourceTypeAPI, []float32{0.8, 0.6}),
		stored("Mountain Lodge", core.SourceTypeAPI, []float32{0, 1}, "hotel"),
		stored("City Museum", core.SourceTypeScraping, []float32{0, 1}, "museum"),
		stored("Unembedded Tour", core.SourceTypeScraping, nil),
	)
	s, err := NewSearcher(repo, queryEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	results, err := s.FindSimilar(context.Background(), "hotels", 10, storage.Filter{})
	require.NoError(t, err)

	// Seaside: semantic 1.0 and category -> 1.5
	// Mountain: category only -> 1.2
	// Harbor: semantic 0.8 only -> 0.8
	assert.Equal(t, []string{"Seaside Resort", "Mountain Lodge", "Harbor View"}, titles(results))
	assert.InDelta(t, 1.5, results[0].Score, 1e-6)
	assert.InDelta(t, 1.2, results[1].Score, 1e-6)
	assert.InDelta(t, 0.8, results[2].Score, 1e-6)
}

func TestFindSimilar_VerbatimBoost(t *testing.T) {
	repo := newRepo(t,
		stored("Quiet Garden", core.SourceTypeAPI, []float32{0.9, 0.4359}),
		stored("Rooftop Bar Paris", core.SourceTypeAPI, []float32{0.7, 0.7141}),
	)
	s, err := NewSearcher(repo, queryEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	results, err := s.FindSimilar(context.Background(), "the rooftop bar in Paris", 10, storage.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Rooftop Bar Paris", results[0].Record.Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-3)
}

func TestFindSimilar_MaxHitsAndFilter(t *testing.T) {
	repo := newRepo(t,
		stored("A", core.SourceTypeAPI, []float32{1, 0}),
		stored("B", core.SourceTypeAPI, []float32{1, 0}),
		stored("C", core.SourceTypeSocial, []float32{1, 0}),
	)
	s, err := NewSearcher(repo, queryEmbedder([]float32{1, 0}))
	require.NoError(t, err)
	ctx := context.Background()

	results, err := s.FindSimilar(ctx, "anything", 2, storage.Filter{})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.FindSimilar(ctx, "anything", 10, storage.Filter{SourceType: core.SourceTypeSocial})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, titles(results))

	results, err = s.FindSimilar(ctx, "anything", 0, storage.Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_Threshold(t *testing.T) {
	repo := newRepo(t, stored("Faint", core.SourceTypeAPI, []float32{0.5, 0.866}))
	ctx := context.Background()

	s, err := NewSearcher(repo, queryEmbedder([]float32{1, 0}))
	require.NoError(t, err)
	results, err := s.FindSimilar(ctx, "x", 10, storage.Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)

	s, err = NewSearcher(repo, queryEmbedder([]float32{1, 0}), WithMinSimilarity(0.4))
	require.NoError(t, err)
	results, err = s.FindSimilar(ctx, "x", 10, storage.Filter{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestFindSimilar_EmbedderError(t *testing.T) {
	boom := errors.New("boom")
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	}
	s, err := NewSearcher(newRepo(t), m)
	require.NoError(t, err)

	_, err = s.FindSimilar(context.Background(), "x", 5, storage.Filter{})
	assert.ErrorIs(t, err, boom)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{2, 0}, []float32{5, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosine([]float32{1}, []float32{1, 0}))
	assert.Zero(t, cosine(nil, nil))
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 0}))
}

func TestText(t *testing.T) {
	assert.Equal(t, []string{"hotels", "tel-aviv"}, tokenize("The Hotels in Tel-Aviv!"))
	assert.True(t, containsAll("Grand Hotel, Paris", tokenize("hotel in paris")))
	assert.False(t, containsAll("Grand Hotel", tokenize("hotel in paris")))
	assert.False(t, containsAll("anything", nil))
	assert.True(t, namesCategory([]string{"hotel"}, []string{"hotels"}))
	assert.False(t, namesCategory([]string{"museum"}, []string{"hotels"}))
}
