package core

import "time"

// RecordPatch lists the fields a maintenance update may change.
// Nil fields are left untouched.
type RecordPatch struct {
	Title         *string
	Description   *string
	Address       *string
	Rating        *float64
	PriceRange    *PriceRange
	Categories    []string
	Language      *string
	ProcessedText *string
	Embedding     []float32
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Address == nil &&
		p.Rating == nil && p.PriceRange == nil && p.Categories == nil &&
		p.Language == nil && p.ProcessedText == nil && p.Embedding == nil
}

// Apply writes the patch onto r, enforces storage bounds and stamps UpdatedAt.
func (p RecordPatch) Apply(r *StoredRecord, now time.Time) {
	if p.Title != nil {
		r.Title = Truncate(*p.Title, MaxTitleLength)
	}
	if p.Description != nil {
		r.Description = Truncate(*p.Description, MaxDescriptionLength)
	}
	if p.Address != nil {
		r.Address = Truncate(*p.Address, MaxAddressLength)
	}
	if p.Rating != nil {
		v := *p.Rating
		r.Rating = &v
	}
	if p.PriceRange != nil {
		r.PriceRange = *p.PriceRange
	}
	if p.Categories != nil {
		r.Categories = append([]string(nil), p.Categories...)
	}
	if p.Language != nil {
		r.Language = *p.Language
	}
	if p.ProcessedText != nil {
		r.ProcessedText = Truncate(*p.ProcessedText, MaxProcessedTextLength)
	}
	if p.Embedding != nil {
		r.Embedding = append([]float32(nil), p.Embedding...)
	}
	r.UpdatedAt = now
}
