package loader

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/wayfarer/core"
)

// Transform converts a canonical record to its stored shape.
// Text fields are truncated to the storage bounds, defaults are applied and
// empty values are left out of RawJSON. A record without a title, or one
// that fails storage validation, is rejected with ErrRejected.
func Transform(r *core.Record, now time.Time) (*core.StoredRecord, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", ErrRejected)
	}

	title := strings.TrimSpace(core.Truncate(r.Title, core.MaxTitleLength))
	if title == "" {
		return nil, fmt.Errorf("%w: %w", ErrRejected, core.ErrMissingTitle)
	}

	stored := &core.StoredRecord{
		SourceType:    r.SourceType,
		SourceName:    r.SourceName,
		SourceURL:     r.SourceURL,
		Title:         title,
		Description:   core.Truncate(r.Description, core.MaxDescriptionLength),
		Address:       core.Truncate(r.Address, core.MaxAddressLength),
		PriceRange:    r.PriceRange,
		Language:      r.Language,
		ProcessedText: core.Truncate(r.ProcessedText, core.MaxProcessedTextLength),
		RawJSON:       rawJSON(r),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if stored.SourceType == "" {
		stored.SourceType = core.SourceTypeManual
	}
	if stored.Language == "" {
		stored.Language = core.LanguageEnglish
	}
	if r.Location != nil {
		loc := *r.Location
		stored.Location = &loc
	}
	if r.Rating != nil {
		rating := *r.Rating
		stored.Rating = &rating
	}
	if len(r.Categories) > 0 {
		stored.Categories = append([]string(nil), r.Categories...)
	}
	if len(r.Embedding) > 0 {
		stored.Embedding = append([]float32(nil), r.Embedding...)
	}

	if err := core.ValidateStored(stored); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return stored, nil
}

// rawJSON builds {original_data, processed_data}, dropping empty entries.
func rawJSON(r *core.Record) map[string]any {
	processed := map[string]any{}
	putStrings(processed, "amenities", r.Amenities)
	putStrings(processed, "images", r.Images)
	putString(processed, "image_url", r.ImageURL)
	putString(processed, "destination", r.Destination)
	putString(processed, "origin", r.Origin)
	putTime(processed, "extracted_at", r.ExtractedAt)
	putTime(processed, "processed_at", r.ProcessedAt)
	if len(r.Attributes) > 0 {
		processed["attributes"] = r.Attributes
	}

	out := map[string]any{}
	if r.RawData != nil {
		out["original_data"] = r.RawData
	}
	if len(processed) > 0 {
		out["processed_data"] = processed
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func putStrings(m map[string]any, key string, v []string) {
	if len(v) > 0 {
		m[key] = v
	}
}

func putTime(m map[string]any, key string, t time.Time) {
	if !t.IsZero() {
		m[key] = t.Format(time.RFC3339Nano)
	}
}
