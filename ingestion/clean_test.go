package ingestion

import (
	"testing"

	"github.com/poiesic/wayfarer/core"
	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Grand Hotel", "Grand Hotel"},
		{"tags", "<p>Left <b>Bank</b> landmark</p>", "Left Bank landmark"},
		{"whitespace", "  Rome \n\t by   night ", "Rome by night"},
		{"disallowed", "Café «Central» ★★★ 100% fun!", "Café Central 100% fun!"},
		{"hebrew", "מלון  דן <i>תל אביב</i>", "מלון דן תל אביב"},
		{"kept punctuation", "Tours & more: $49 (per person); #1 @ city-center.", "Tours & more: $49 (per person); #1 @ city-center."},
		{"tag leaves gap", "a<br>b", "ab"},
		{"only junk", "«»★", ""},
		{"no-break space", "Grand\u00a0Hotel Paris", "Grand Hotel Paris"},
		{"em space", "Café\u2003Central", "Café Central"},
		{"line separator", "Line\u2028Break\u2029Here\u0085Now", "Line Break Here Now"},
		{"mixed unicode run", " \u00a0Old \u3000\u00a0 Town\u202f", "Old Town"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanText(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, CleanText(got), "cleaning must be idempotent")
		})
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	inputs := []string{
		"<<b>>nested<</b>>",
		"a < b > c",
		"  <div> spaced out </div> ",
		"emoji 🏖️ beach\t\ttime",
		"<a href='x'>link</a><script>alert(1)</script>",
		"Grand\u00a0\u00a0Hotel",
		"Café\u2003 \u2003Central",
	}
	for _, in := range inputs {
		once := CleanText(in)
		assert.Equal(t, once, CleanText(once), "input %q", in)
	}
}

func TestNormalizeCategories(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"synonyms dedupe", []any{"Lodging", "hotel", "Dining"}, []string{"hotel", "restaurant"}},
		{"string slice", []string{" Tour ", "ENTERTAINMENT", "museum"}, []string{"activity", "museum"}},
		{"transport pair", []string{"transport", "transportation"}, []string{"transportation", "transport"}},
		{"non strings skipped", []any{"food", 42, nil, "Food"}, []string{"restaurant"}},
		{"not a list", "hotel", []string{}},
		{"nil", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCategories(tt.in))
		})
	}
}

func TestNormalizeRating(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOK bool
	}{
		{"percent scale", 87, 4.3, true},
		{"ten scale", 8.0, 4.0, true},
		{"five scale", 4.2, 4.2, true},
		{"text", "4.5 of 5 bubbles", 4.5, true},
		{"ten scale text", "9.2", 4.6, true},
		{"hundred", 100, 5, true},
		{"negative clamps", -3, 0, true},
		{"rounds", 3.14159, 3.1, true},
		{"no digits", "excellent", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
		{"map", map[string]any{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeRating(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 5.0)
			}
		})
	}
}

func TestNormalizePriceRange(t *testing.T) {
	tests := []struct {
		in   any
		want core.PriceRange
	}{
		{"luxury suite", core.PriceLuxury},
		{"$$", core.PriceModerate},
		{"moderate", core.PriceModerate},
		{"Budget", core.PriceBudget},
		{"LOW season", core.PriceBudget},
		{"High-End dining", core.PriceLuxury},
		{"$", core.PriceBudget},
		{"$$$$$", core.PriceLuxury},
		{"  $$$ ", core.PriceLuxury},
		{"", core.PriceModerate},
		{42, core.PriceModerate},
		{core.PriceBudget, core.PriceBudget},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePriceRange(tt.in), "input %v", tt.in)
	}
}

func TestApplyAliases(t *testing.T) {
	raw := core.RawRecord{
		"name":         "Colosseum",
		"summary":      "Ancient amphitheatre",
		"link":         "https://example.com/colosseum",
		"img_url":      "https://img.example/c.jpg",
		"location_lat": "41.89",
		"location_lng": "12.49",
		"source_type":  "scraping",
	}
	got := ApplyAliases(raw)

	assert.Equal(t, core.RawRecord{
		core.FieldTitle:       "Colosseum",
		core.FieldDescription: "Ancient amphitheatre",
		core.FieldSourceURL:   "https://example.com/colosseum",
		core.FieldImageURL:    "https://img.example/c.jpg",
		core.FieldLatitude:    "41.89",
		core.FieldLongitude:   "12.49",
		core.FieldSourceType:  "scraping",
	}, got)
	assert.Contains(t, raw, "name", "input must not be modified")
}

func TestApplyAliases_CanonicalWins(t *testing.T) {
	got := ApplyAliases(core.RawRecord{
		core.FieldTitle:     "Canonical",
		"name":              "Alias",
		core.FieldSourceURL: "https://canonical.example",
		"url":               "https://alias.example",
		"link":              "https://other.example",
	})
	assert.Equal(t, "Canonical", got[core.FieldTitle])
	assert.Equal(t, "https://canonical.example", got[core.FieldSourceURL])
	assert.NotContains(t, got, "name")
	assert.NotContains(t, got, "url")
	assert.NotContains(t, got, "link")
}

func TestCleanRecord_DoesNotMutateInput(t *testing.T) {
	raw := core.RawRecord{
		core.FieldTitle:      "<b>Hotel</b>",
		core.FieldRating:     "9",
		core.FieldCategories: []string{"Lodging"},
		"url":                "https://example.com",
	}
	cleaned := cleanRecord(raw)

	assert.Equal(t, "Hotel", cleaned[core.FieldTitle])
	assert.Equal(t, 4.5, cleaned[core.FieldRating])
	assert.Equal(t, []string{"hotel"}, cleaned[core.FieldCategories])
	assert.Equal(t, "https://example.com", cleaned[core.FieldSourceURL])

	assert.Equal(t, "<b>Hotel</b>", raw[core.FieldTitle])
	assert.Equal(t, "9", raw[core.FieldRating])
	assert.Equal(t, []string{"Lodging"}, raw[core.FieldCategories])
}

func TestCleanRecord_UnreadableRatingDropped(t *testing.T) {
	cleaned := cleanRecord(core.RawRecord{core.FieldTitle: "Hotel", core.FieldRating: "n/a"})
	assert.NotContains(t, cleaned, core.FieldRating)
}
