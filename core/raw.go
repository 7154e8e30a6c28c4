package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawRecord is the heterogeneous output of one adapter call.
// No two adapters guarantee the same key set.
type RawRecord map[string]any

// Canonical raw record keys.
const (
	FieldTitle         = "title"
	FieldDescription   = "description"
	FieldAddress       = "address"
	FieldSourceType    = "source_type"
	FieldSourceName    = "source_name"
	FieldSourceURL     = "source_url"
	FieldImageURL      = "image_url"
	FieldLocation      = "location"
	FieldLatitude      = "latitude"
	FieldLongitude     = "longitude"
	FieldRating        = "rating"
	FieldPriceRange    = "price_range"
	FieldCategories    = "categories"
	FieldAmenities     = "amenities"
	FieldImages        = "images"
	FieldDestination   = "destination"
	FieldOrigin        = "origin"
	FieldExtractedAt   = "extracted_at"
	FieldRawData       = "raw_data"
	FieldLanguage      = "language"
	FieldProcessedText = "processed_text"
	FieldProcessedAt   = "processed_at"
	FieldEmbedding     = "embedding"
)

// String returns the value at key as text. Missing and nil values yield "".
func (r RawRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return AsText(v)
}

// Has reports whether key is present with a non-nil value.
func (r RawRecord) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Clone returns a shallow copy. Processing never mutates adapter output.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DecodeRecord maps a cleaned raw record onto the typed Record shape.
// Values of the wrong type for a typed field are dropped; unknown keys land in Attributes.
func DecodeRecord(raw RawRecord) *Record {
	rec := &Record{
		Title:       raw.String(FieldTitle),
		Description: raw.String(FieldDescription),
		Address:     raw.String(FieldAddress),
		SourceType:  SourceType(raw.String(FieldSourceType)),
		SourceName:  raw.String(FieldSourceName),
		SourceURL:   raw.String(FieldSourceURL),
		ImageURL:    raw.String(FieldImageURL),
		Destination: raw.String(FieldDestination),
		Origin:      raw.String(FieldOrigin),
		RawData:     raw[FieldRawData],
	}

	rec.Location = decodeLocation(raw)

	if v, ok := raw[FieldRating]; ok && v != nil {
		if f, ok := AsFloat(v); ok {
			rec.Rating = &f
		}
	}
	if v, ok := raw[FieldPriceRange].(PriceRange); ok {
		rec.PriceRange = v
	} else if s, ok := raw[FieldPriceRange].(string); ok {
		rec.PriceRange = PriceRange(s)
	}
	if cats, ok := AsStrings(raw[FieldCategories]); ok {
		rec.Categories = cats
	}
	if amenities, ok := AsStrings(raw[FieldAmenities]); ok {
		rec.Amenities = amenities
	}
	if images, ok := AsStrings(raw[FieldImages]); ok {
		rec.Images = images
	}
	if ts, ok := AsTime(raw[FieldExtractedAt]); ok {
		rec.ExtractedAt = ts
	}

	for k, v := range raw {
		if consumedFields[k] || v == nil {
			continue
		}
		if rec.Attributes == nil {
			rec.Attributes = make(map[string]any)
		}
		rec.Attributes[k] = v
	}

	return rec
}

var consumedFields = map[string]bool{
	FieldTitle: true, FieldDescription: true, FieldAddress: true,
	FieldSourceType: true, FieldSourceName: true, FieldSourceURL: true,
	FieldImageURL: true, FieldLocation: true, FieldLatitude: true,
	FieldLongitude: true, FieldRating: true, FieldPriceRange: true,
	FieldCategories: true, FieldAmenities: true, FieldImages: true,
	FieldDestination: true, FieldOrigin: true, FieldExtractedAt: true,
	FieldRawData: true, FieldLanguage: true, FieldProcessedText: true,
	FieldProcessedAt: true, FieldEmbedding: true,
}

// decodeLocation accepts a location object or a latitude/longitude pair.
// A point is produced only when both coordinates parse.
func decodeLocation(raw RawRecord) *GeoPoint {
	switch loc := raw[FieldLocation].(type) {
	case *GeoPoint:
		if loc != nil {
			p := *loc
			return &p
		}
	case GeoPoint:
		return &loc
	case map[string]any:
		lat, latOK := AsFloat(loc["lat"])
		lng, lngOK := AsFloat(firstPresent(loc, "lng", "lon"))
		if latOK && lngOK {
			return &GeoPoint{Lat: lat, Lng: lng}
		}
	}

	lat, latOK := AsFloat(raw[FieldLatitude])
	lng, lngOK := AsFloat(raw[FieldLongitude])
	if latOK && lngOK {
		return &GeoPoint{Lat: lat, Lng: lng}
	}
	return nil
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// AsFloat coerces numeric values and numeric strings to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case fmt.Stringer:
		f, err := strconv.ParseFloat(strings.TrimSpace(n.String()), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// AsStrings coerces list values to a string slice.
// Non-string elements of a generic list are skipped.
func AsStrings(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

// AsText renders a value as text. Lists are space-joined.
func AsText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// Avoid exponent notation for large JSON numbers such as IDs.
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		return strings.Join(t, " ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, AsText(item))
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// AsTime parses timestamps given as time.Time or ISO-8601 text.
func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t != nil {
			return *t, !t.IsZero()
		}
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
