package ingestion

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/wayfarer/core"
)

// HebrewThreshold is the share of Hebrew-block characters above which text is tagged "he".
const HebrewThreshold = 0.3

// DetectLanguage tags text as Hebrew or English by counting U+0590..U+05FF runes.
func DetectLanguage(text string) string {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return core.LanguageEnglish
	}
	hebrew := 0
	for _, r := range text {
		if r >= 0x0590 && r <= 0x05FF {
			hebrew++
		}
	}
	if float64(hebrew) > float64(total)*HebrewThreshold {
		return core.LanguageHebrew
	}
	return core.LanguageEnglish
}

// ProcessedText builds the embedding input from the descriptive fields,
// space-joined and skipping empties.
func ProcessedText(r *core.Record) string {
	parts := []string{
		r.Title,
		r.Description,
		strings.Join(r.Categories, " "),
		r.Address,
		r.Destination,
		r.Origin,
		strings.Join(r.Amenities, " "),
	}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// enrich stamps ProcessedAt and fills ProcessedText, Location and Language.
// A geocoding failure leaves Location nil.
func (p *Processor) enrich(ctx context.Context, r *core.Record) {
	r.ProcessedAt = p.now()
	r.ProcessedText = ProcessedText(r)

	if r.Address != "" && r.Location == nil && p.geocoder != nil {
		gctx, cancel := context.WithTimeout(ctx, p.geocodeTimeout)
		point, err := p.geocoder.Geocode(gctx, r.Address)
		cancel()
		if err != nil {
			p.logger.Warn("geocoding failed", "title", r.Title, "address", r.Address, "err", err)
		} else {
			r.Location = point
		}
	}

	r.Language = DetectLanguage(r.Title + " " + r.Description)
}
