package expedia

import (
	"strings"
	"time"

	"github.com/poiesic/wayfarer/core"
)

// Fixtures returns the deterministic hotels served when the API is unavailable.
func (a *Adapter) Fixtures(destination string) []core.RawRecord {
	extractedAt := a.now().Format(time.RFC3339Nano)
	lower := strings.ToLower(destination)

	return []core.RawRecord{
		{
			core.FieldSourceType:  string(core.SourceTypeAPI),
			core.FieldSourceName:  Name,
			core.FieldTitle:       "Grand Hotel " + destination,
			core.FieldDescription: "Luxury hotel in the heart of " + destination + " with excellent amenities and service.",
			core.FieldAddress:     "123 Main Street, " + destination,
			core.FieldLocation:    map[string]any{"lat": 40.7128, "lng": -74.0060},
			core.FieldRating:      4.5,
			core.FieldPriceRange:  string(core.PriceLuxury),
			core.FieldCategories:  []string{"hotel", "luxury", "accommodation"},
			core.FieldAmenities:   []string{"WiFi", "Pool", "Gym", "Restaurant", "Spa"},
			core.FieldImages:      []string{"https://images.unsplash.com/photo-1566073771259-6a8506099945?w=800"},
			core.FieldSourceURL:   "https://www.expedia.com/mock-hotel-" + lower,
			core.FieldDestination: destination,
			core.FieldExtractedAt: extractedAt,
		},
		{
			core.FieldSourceType:  string(core.SourceTypeAPI),
			core.FieldSourceName:  Name,
			core.FieldTitle:       "Budget Inn " + destination,
			core.FieldDescription: "Affordable accommodation in " + destination + " perfect for budget travelers.",
			core.FieldAddress:     "456 Budget Ave, " + destination,
			core.FieldLocation:    map[string]any{"lat": 40.7589, "lng": -73.9851},
			core.FieldRating:      3.8,
			core.FieldPriceRange:  string(core.PriceBudget),
			core.FieldCategories:  []string{"hotel", "budget", "accommodation"},
			core.FieldAmenities:   []string{"WiFi", "Breakfast"},
			core.FieldImages:      []string{"https://images.unsplash.com/photo-1564501049412-61c2a3083791?w=800"},
			core.FieldSourceURL:   "https://www.expedia.com/mock-budget-" + lower,
			core.FieldDestination: destination,
			core.FieldExtractedAt: extractedAt,
		},
	}
}
