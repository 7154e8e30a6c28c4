package feeds

import (
	"strings"
	"time"

	"github.com/poiesic/wayfarer/core"
)

// Fixtures returns two deterministic travel posts for the feed.
func (a *Adapter) Fixtures(q FeedQuery) []core.RawRecord {
	name := q.sourceName()
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	extractedAt := a.now().Format(time.RFC3339Nano)

	cats := func(base ...string) []string {
		return append(base, q.Categories...)
	}

	return []core.RawRecord{
		{
			core.FieldSourceType:  string(core.SourceTypeSocial),
			core.FieldSourceName:  name,
			core.FieldTitle:       "48 Hours in Lisbon: Trams, Tiles and Pasteis",
			core.FieldDescription: "A two day walking itinerary through Alfama, Baixa and Belem with the best viewpoints.",
			"url":                 "https://www.youtube.com/watch?v=mock-" + slug + "-1",
			"image":               "https://i.ytimg.com/vi/mock-" + slug + "-1/hqdefault.jpg",
			core.FieldCategories:  cats("travel", "sightseeing"),
			core.FieldExtractedAt: extractedAt,
		},
		{
			core.FieldSourceType:  string(core.SourceTypeSocial),
			core.FieldSourceName:  name,
			core.FieldTitle:       "Street Food Tour of Bangkok on a Budget",
			core.FieldDescription: "Night markets, boat noodles and mango sticky rice for under $20 a day.",
			"url":                 "https://www.youtube.com/watch?v=mock-" + slug + "-2",
			"image":               "https://i.ytimg.com/vi/mock-" + slug + "-2/hqdefault.jpg",
			core.FieldCategories:  cats("travel", "food", "tour"),
			core.FieldExtractedAt: extractedAt,
		},
	}
}
