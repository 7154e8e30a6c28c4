package skyscanner

import (
	"time"

	"github.com/poiesic/wayfarer/core"
)

// Fixtures returns the deterministic flights served when the API is unavailable.
func (a *Adapter) Fixtures(origin, destination string) []core.RawRecord {
	now := a.now()
	departureDay := now.AddDate(0, 0, 30)
	stamp := func(d time.Duration) string {
		return departureDay.Add(d).Format(time.RFC3339Nano)
	}
	extractedAt := now.Format(time.RFC3339Nano)

	return []core.RawRecord{
		{
			core.FieldSourceType:  string(core.SourceTypeAPI),
			core.FieldSourceName:  Name,
			core.FieldTitle:       "Flight from " + origin + " to " + destination,
			core.FieldDescription: "Direct flight from " + origin + " to " + destination + " operated by major airline",
			core.FieldOrigin:      origin,
			core.FieldDestination: destination,
			"departure_time":      stamp(10 * time.Hour),
			"arrival_time":        stamp(18 * time.Hour),
			"duration":            480,
			"carriers":            []string{"American Airlines"},
			"price":               599,
			"currency":            "USD",
			"stops":               0,
			core.FieldCategories:  []string{"flight", "transport"},
			core.FieldSourceURL:   "https://www.skyscanner.com/mock-flight-" + origin + "-" + destination,
			core.FieldExtractedAt: extractedAt,
		},
		{
			core.FieldSourceType:  string(core.SourceTypeAPI),
			core.FieldSourceName:  Name,
			core.FieldTitle:       "Budget Flight from " + origin + " to " + destination,
			core.FieldDescription: "Connecting flight from " + origin + " to " + destination + " with one stop",
			core.FieldOrigin:      origin,
			core.FieldDestination: destination,
			"departure_time":      stamp(6 * time.Hour),
			"arrival_time":        stamp(16 * time.Hour),
			"duration":            600,
			"carriers":            []string{"Budget Airlines"},
			"price":               299,
			"currency":            "USD",
			"stops":               1,
			core.FieldCategories:  []string{"flight", "transport", "budget"},
			core.FieldSourceURL:   "https://www.skyscanner.com/mock-budget-" + origin + "-" + destination,
			core.FieldExtractedAt: extractedAt,
		},
	}
}
