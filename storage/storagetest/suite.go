// Package storagetest provides a behavioral test suite shared by every
// storage.Repository implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty repository. The suite closes it.
type Factory func(t *testing.T) storage.Repository

// RunRepositoryTests exercises the storage.Repository contract.
func RunRepositoryTests(t *testing.T, newRepo Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo storage.Repository)
	}{
		{"InsertAndGet", testInsertAndGet},
		{"DuplicateURLRejectsBatch", testDuplicateURLRejectsBatch},
		{"DuplicateURLWithinBatch", testDuplicateURLWithinBatch},
		{"RecordsWithoutURL", testRecordsWithoutURL},
		{"Exists", testExists},
		{"Update", testUpdate},
		{"DeleteBefore", testDeleteBefore},
		{"Delete", testDelete},
		{"Count", testCount},
		{"ForEachOrder", testForEachOrder},
		{"LastUpdated", testLastUpdated},
		{"Closed", testClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			defer repo.Close()
			tt.fn(t, repo)
		})
	}
}

func hotel(title, url string) *core.StoredRecord {
	rating := 4.5
	return &core.StoredRecord{
		SourceType: core.SourceTypeAPI,
		SourceName: "expedia",
		SourceURL:  url,
		Title:      title,
		Location:   &core.GeoPoint{Lat: 40.7128, Lng: -74.006},
		Rating:     &rating,
		PriceRange: core.PriceLuxury,
		Categories: []string{"hotel", "luxury"},
		Language:   core.LanguageEnglish,
		Embedding:  []float32{0.1, 0.2},
		RawJSON:    map[string]any{"original_data": map[string]any{"id": "1"}},
	}
}

func testInsertAndGet(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	inserted, err := repo.InsertMany(ctx, hotel("Grand Hotel Paris", "https://example.com/a"))
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	require.NotZero(t, inserted[0].ID)
	assert.False(t, inserted[0].CreatedAt.IsZero())

	got, err := repo.Get(ctx, inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Grand Hotel Paris", got.Title)
	assert.Equal(t, core.PriceLuxury, got.PriceRange)
	require.NotNil(t, got.Location)
	assert.InDelta(t, 40.7128, got.Location.Lat, 1e-9)
	assert.InDelta(t, -74.006, got.Location.Lng, 1e-9)
	require.NotNil(t, got.Rating)
	assert.InDelta(t, 4.5, *got.Rating, 1e-9)
	assert.Equal(t, []string{"hotel", "luxury"}, got.Categories)
	assert.Len(t, got.Embedding, 2)
	assert.Contains(t, got.RawJSON, "original_data")

	_, err = repo.Get(ctx, core.ID(987654))
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func testDuplicateURLRejectsBatch(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	_, err := repo.InsertOne(ctx, hotel("Existing Hotel", "https://example.com/dup"))
	require.NoError(t, err)

	_, err = repo.InsertMany(ctx,
		hotel("Fresh Hotel", "https://example.com/fresh"),
		hotel("Duplicate Hotel", "https://example.com/dup"),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	// Nothing from the failed batch was written.
	count, err := repo.Count(ctx, storage.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	exists, err := repo.Exists(ctx, core.Match{SourceURL: "https://example.com/fresh"})
	require.NoError(t, err)
	assert.False(t, exists)
}

func testDuplicateURLWithinBatch(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	_, err := repo.InsertMany(ctx,
		hotel("First Copy", "https://example.com/same"),
		hotel("Second Copy", "https://example.com/same"),
	)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	count, err := repo.Count(ctx, storage.Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func testRecordsWithoutURL(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	_, err := repo.InsertMany(ctx, hotel("No URL One", ""), hotel("No URL Two", ""))
	require.NoError(t, err)

	count, err := repo.Count(ctx, storage.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func testExists(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	_, err := repo.InsertMany(ctx,
		hotel("Linked Hotel", "https://example.com/linked"),
		hotel("Unlinked Hotel", ""),
	)
	require.NoError(t, err)

	tests := []struct {
		name  string
		match core.Match
		want  bool
	}{
		{"url hit", core.Match{SourceURL: "https://example.com/linked"}, true},
		{"url miss", core.Match{SourceURL: "https://example.com/other"}, false},
		{"title hit", core.Match{Title: "Unlinked Hotel", SourceType: core.SourceTypeAPI}, true},
		{"title hit on record with url", core.Match{Title: "Linked Hotel", SourceType: core.SourceTypeAPI}, true},
		{"title wrong source type", core.Match{Title: "Unlinked Hotel", SourceType: core.SourceTypeSocial}, false},
		{"title miss", core.Match{Title: "Nowhere Inn", SourceType: core.SourceTypeAPI}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Exists(ctx, tt.match)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func testUpdate(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	rec, err := repo.InsertOne(ctx, hotel("Old Title", "https://example.com/upd"))
	require.NoError(t, err)
	before := rec.UpdatedAt

	time.Sleep(2 * time.Millisecond)
	title := "New Title"
	rating := 3.9
	ok, err := repo.Update(ctx, rec.ID, core.RecordPatch{Title: &title, Rating: &rating})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.InDelta(t, 3.9, *got.Rating, 1e-9)
	assert.True(t, got.UpdatedAt.After(before))

	exists, err := repo.Exists(ctx, core.Match{Title: "New Title", SourceType: core.SourceTypeAPI})
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, core.Match{Title: "Old Title", SourceType: core.SourceTypeAPI})
	require.NoError(t, err)
	assert.False(t, exists)

	ok, err = repo.Update(ctx, core.ID(424242), core.RecordPatch{Title: &title})
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDeleteBefore(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	now := time.Now().UTC()

	old := hotel("Old Hotel", "https://example.com/old")
	old.CreatedAt = now.AddDate(0, 0, -100)
	recent := hotel("Recent Hotel", "https://example.com/recent")
	recent.CreatedAt = now.AddDate(0, 0, -10)

	_, err := repo.InsertMany(ctx, old, recent)
	require.NoError(t, err)

	deleted, err := repo.DeleteBefore(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	exists, err := repo.Exists(ctx, core.Match{SourceURL: "https://example.com/old"})
	require.NoError(t, err)
	assert.False(t, exists)

	// The freed URL can be inserted again.
	_, err = repo.InsertOne(ctx, hotel("Old Hotel Again", "https://example.com/old"))
	require.NoError(t, err)

	deleted, err = repo.DeleteBefore(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func testDelete(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	inserted, err := repo.InsertMany(ctx, hotel("Keep", "https://example.com/keep"), hotel("Drop", "https://example.com/drop"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, inserted[1].ID, core.ID(999999)))

	_, err = repo.Get(ctx, inserted[1].ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	_, err = repo.Get(ctx, inserted[0].ID)
	assert.NoError(t, err)
}

func testCount(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	now := time.Now().UTC()

	social := hotel("Feed Post", "https://example.com/post")
	social.SourceType = core.SourceTypeSocial
	stale := hotel("Stale Hotel", "https://example.com/stale")
	stale.CreatedAt = now.AddDate(0, 0, -30)

	_, err := repo.InsertMany(ctx, hotel("Fresh Hotel", "https://example.com/fresh"), social, stale)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter storage.Filter
		want   int
	}{
		{"all", storage.Filter{}, 3},
		{"by source type", storage.Filter{SourceType: core.SourceTypeAPI}, 2},
		{"social", storage.Filter{SourceType: core.SourceTypeSocial}, 1},
		{"recent", storage.Filter{CreatedSince: now.AddDate(0, 0, -7)}, 2},
		{"recent api", storage.Filter{SourceType: core.SourceTypeAPI, CreatedSince: now.AddDate(0, 0, -7)}, 1},
		{"manual", storage.Filter{SourceType: core.SourceTypeManual}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func testForEachOrder(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	now := time.Now().UTC()

	second := hotel("Second", "https://example.com/2")
	second.CreatedAt = now.Add(-time.Hour)
	first := hotel("First", "https://example.com/1")
	first.CreatedAt = now.Add(-2 * time.Hour)
	third := hotel("Third", "https://example.com/3")
	third.CreatedAt = now

	_, err := repo.InsertMany(ctx, second, first, third)
	require.NoError(t, err)

	var titles []string
	err = repo.ForEach(ctx, func(r *core.StoredRecord) error {
		titles = append(titles, r.Title)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second", "Third"}, titles)

	stop := errors.New("stop")
	visited := 0
	err = repo.ForEach(ctx, func(r *core.StoredRecord) error {
		visited++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}

func testLastUpdated(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	latest, err := repo.LastUpdated(ctx)
	require.NoError(t, err)
	assert.True(t, latest.IsZero())

	inserted, err := repo.InsertMany(ctx, hotel("A", "https://example.com/a"), hotel("B", "https://example.com/b"))
	require.NoError(t, err)

	latest, err = repo.LastUpdated(ctx)
	require.NoError(t, err)
	assert.False(t, latest.IsZero())

	time.Sleep(2 * time.Millisecond)
	desc := "renovated"
	_, err = repo.Update(ctx, inserted[0].ID, core.RecordPatch{Description: &desc})
	require.NoError(t, err)

	got, err := repo.Get(ctx, inserted[0].ID)
	require.NoError(t, err)
	newest, err := repo.LastUpdated(ctx)
	require.NoError(t, err)
	assert.True(t, newest.Equal(got.UpdatedAt))
}

func testClosed(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Close())

	_, err := repo.InsertOne(ctx, hotel("Late", "https://example.com/late"))
	assert.True(t, errors.Is(err, storage.ErrStorageClosed))

	_, err = repo.Exists(ctx, core.Match{SourceURL: "https://example.com/late"})
	assert.True(t, errors.Is(err, storage.ErrStorageClosed))
}
