package manual

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLoad(t *testing.T) {
	records, err := Load(strings.NewReader(`
- title: Carmel Market
  address: HaCarmel St, Tel Aviv
  categories: [market, food]
  rating: 4.5
- title: Jaffa Port
  source_type: scraping
  source_name: walking-guide
`), fixedNow)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Carmel Market", first.String(core.FieldTitle))
	assert.Equal(t, "manual", first.String(core.FieldSourceType))
	assert.Equal(t, Name, first.String(core.FieldSourceName))
	assert.Equal(t, "2025-03-01T12:00:00Z", first.String(core.FieldExtractedAt))
	cats, ok := core.AsStrings(first[core.FieldCategories])
	require.True(t, ok)
	assert.Equal(t, []string{"market", "food"}, cats)
	rating, ok := core.AsFloat(first[core.FieldRating])
	require.True(t, ok)
	assert.Equal(t, 4.5, rating)

	assert.Equal(t, "scraping", records[1].String(core.FieldSourceType))
	assert.Equal(t, "walking-guide", records[1].String(core.FieldSourceName))
}

func TestLoad_JSON(t *testing.T) {
	records, err := Load(strings.NewReader(`[{"title": "Old Acre", "source_url": "https://example.com/acre"}]`), fixedNow)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://example.com/acre", records[0].String(core.FieldSourceURL))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader("title: not a list\n"), fixedNow)
	assert.ErrorIs(t, err, sources.ErrDecode)

	_, err = Load(strings.NewReader("- ~\n"), fixedNow)
	assert.ErrorIs(t, err, sources.ErrDecode)

	records, err := Load(strings.NewReader(""), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- title: Masada\n"), 0o600))

	records, err := LoadFile(path, fixedNow)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), fixedNow)
	assert.Error(t, err)
}

func TestTask(t *testing.T) {
	records, err := Load(strings.NewReader("- title: Masada\n"), fixedNow)
	require.NoError(t, err)

	task := Task("places.yaml", records)
	assert.Equal(t, Name, task.Source)
	assert.Equal(t, Service, task.Service)

	res := task.Extract(context.Background())
	assert.False(t, res.Degraded)
	require.Len(t, res.Records, 1)

	res.Records[0][core.FieldTitle] = "changed"
	assert.Equal(t, "Masada", records[0].String(core.FieldTitle), "extraction hands out copies")
}
