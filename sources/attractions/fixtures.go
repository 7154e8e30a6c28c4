package attractions

import (
	"net/url"
	"time"

	"github.com/poiesic/wayfarer/core"
)

// Fixtures returns two deterministic attractions for the destination.
func (a *Adapter) Fixtures(destination string) []core.RawRecord {
	extractedAt := a.now().Format(time.RFC3339Nano)
	slug := url.PathEscape(destination)

	return []core.RawRecord{
		{
			core.FieldSourceType:  string(core.SourceTypeScraping),
			core.FieldSourceName:  Name,
			core.FieldTitle:       "Old Town Walking Tour " + destination,
			"summary":             "Guided three hour walk through the historic center of " + destination + ".",
			core.FieldRating:      "4.5 of 5 bubbles",
			core.FieldAddress:     "1 Central Square, " + destination,
			core.FieldPriceRange:  "budget",
			core.FieldCategories:  []string{"Tour", "Sightseeing"},
			"link":                "https://www.tripadvisor.com/mock-attraction-tour-" + slug,
			core.FieldDestination: destination,
			core.FieldExtractedAt: extractedAt,
		},
		{
			core.FieldSourceType:  string(core.SourceTypeScraping),
			core.FieldSourceName:  Name,
			core.FieldTitle:       destination + " National Museum",
			"summary":             "Art and history collections spanning three centuries.",
			core.FieldRating:      "4.8 of 5 bubbles",
			core.FieldAddress:     "200 Museum Road, " + destination,
			core.FieldPriceRange:  "$$",
			core.FieldCategories:  []string{"Sightseeing", "Entertainment"},
			"link":                "https://www.tripadvisor.com/mock-attraction-museum-" + slug,
			core.FieldDestination: destination,
			core.FieldExtractedAt: extractedAt,
		},
	}
}
