package loader

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/poiesic/wayfarer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

func TestTransform_TruncatesInRunes(t *testing.T) {
	rec := &core.Record{
		Title:         strings.Repeat("מ", 600),
		Description:   strings.Repeat("é", 2500),
		Address:       strings.Repeat("a", 501),
		ProcessedText: strings.Repeat("ß", 6000),
		SourceType:    core.SourceTypeSocial,
	}

	stored, err := Transform(rec, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, core.MaxTitleLength, utf8.RuneCountInString(stored.Title))
	assert.Equal(t, core.MaxDescriptionLength, utf8.RuneCountInString(stored.Description))
	assert.Equal(t, core.MaxAddressLength, utf8.RuneCountInString(stored.Address))
	assert.Equal(t, core.MaxProcessedTextLength, utf8.RuneCountInString(stored.ProcessedText))
	assert.True(t, utf8.ValidString(stored.Title))
}

func TestTransform_DefaultsAndOmissions(t *testing.T) {
	rec := &core.Record{Title: "Harbor Walk"}

	stored, err := Transform(rec, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, core.SourceTypeManual, stored.SourceType)
	assert.Equal(t, core.LanguageEnglish, stored.Language)
	assert.Equal(t, fixedNow, stored.CreatedAt)
	assert.Equal(t, fixedNow, stored.UpdatedAt)
	assert.Nil(t, stored.RawJSON)
	assert.Nil(t, stored.Location)
	assert.Nil(t, stored.Rating)
	assert.Nil(t, stored.Categories)
	assert.Nil(t, stored.Embedding)
}

func TestTransform_RawJSON(t *testing.T) {
	rating := 4.5
	rec := &core.Record{
		Title:       "Grand Hotel Rome",
		SourceType:  core.SourceTypeAPI,
		SourceURL:   "https://www.expedia.com/mock-hotel-rome",
		Location:    &core.GeoPoint{Lat: 41.9, Lng: 12.5},
		Rating:      &rating,
		Categories:  []string{"hotel", "luxury"},
		Amenities:   []string{"WiFi"},
		Destination: "Rome",
		Attributes:  map[string]any{"currency": "USD"},
		ExtractedAt: fixedNow.Add(-time.Minute),
		ProcessedAt: fixedNow,
		RawData:     map[string]any{"id": 1.0},
		Embedding:   []float32{0.1, 0.2},
	}

	stored, err := Transform(rec, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "POINT(12.5 41.9)", stored.Location.WKT())
	assert.Equal(t, map[string]any{"id": 1.0}, stored.RawJSON["original_data"])

	processed, ok := stored.RawJSON["processed_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"WiFi"}, processed["amenities"])
	assert.Equal(t, "Rome", processed["destination"])
	assert.Equal(t, "2025-05-01T07:59:00Z", processed["extracted_at"])
	assert.Equal(t, "2025-05-01T08:00:00Z", processed["processed_at"])
	assert.Equal(t, map[string]any{"currency": "USD"}, processed["attributes"])
	assert.NotContains(t, processed, "images")
	assert.NotContains(t, processed, "origin")

	// Stored copies are independent of the source record.
	rec.Categories[0] = "changed"
	*rec.Rating = 1
	assert.Equal(t, "hotel", stored.Categories[0])
	assert.Equal(t, 4.5, *stored.Rating)
}

func TestTransform_Rejects(t *testing.T) {
	tests := []struct {
		name string
		rec  *core.Record
	}{
		{"nil", nil},
		{"blank title", &core.Record{Title: "   ", SourceType: core.SourceTypeAPI}},
		{"unknown source type", &core.Record{Title: "Somewhere", SourceType: "carrier-pigeon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(tt.rec, fixedNow)
			assert.ErrorIs(t, err, ErrRejected)
		})
	}
}
