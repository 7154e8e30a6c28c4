package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
	"github.com/poiesic/wayfarer/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storagetest.RunRepositoryTests(t, func(t *testing.T) storage.Repository {
		store, err := Open(filepath.Join(t.TempDir(), "wayfarer.db"))
		require.NoError(t, err)
		return store
	})
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayfarer.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestStore_LocationStoredAsWKT(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "wayfarer.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	rec, err := store.InsertOne(ctx, &core.StoredRecord{
		SourceType: core.SourceTypeScraping,
		Title:      "Colosseum",
		Location:   &core.GeoPoint{Lat: 41.8902, Lng: 12.4922},
	})
	require.NoError(t, err)

	var wkt string
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT location FROM travel_records WHERE id = ?`, int64(rec.ID)).Scan(&wkt))
	assert.Equal(t, "POINT(12.4922 41.8902)", wkt)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.InDelta(t, 41.8902, got.Location.Lat, 1e-9)
	assert.Nil(t, got.Rating)
	assert.Empty(t, got.SourceURL)
}

func TestStore_Compact(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "wayfarer.db"))
	require.NoError(t, err)
	ctx := context.Background()

	rec, err := store.InsertOne(ctx, &core.StoredRecord{SourceType: core.SourceTypeAPI, Title: "Hotel Granvia"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, rec.ID))
	assert.NoError(t, store.Compact(ctx))

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Compact(ctx), storage.ErrStorageClosed)
}
