package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored records.
// It is generated from store sequences or content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceType classifies how a record was obtained.
type SourceType string

const (
	SourceTypeAPI      SourceType = "api"
	SourceTypeScraping SourceType = "scraping"
	SourceTypeSocial   SourceType = "social"
	SourceTypeManual   SourceType = "manual"
)

// SourceTypes lists every known source type in reporting order.
var SourceTypes = []SourceType{SourceTypeAPI, SourceTypeScraping, SourceTypeSocial, SourceTypeManual}

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceTypeAPI, SourceTypeScraping, SourceTypeSocial, SourceTypeManual:
		return true
	}
	return false
}

// PriceRange is one of three discrete price tiers.
type PriceRange string

const (
	PriceBudget   PriceRange = "$"
	PriceModerate PriceRange = "$$"
	PriceLuxury   PriceRange = "$$$"
)

// Language codes assigned by the processor.
const (
	LanguageEnglish = "en"
	LanguageHebrew  = "he"
)

// GeoPoint is a latitude/longitude pair. A record either has both or neither.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WKT renders the point in the well-known-text form used by spatial stores.
// Longitude comes first.
func (p GeoPoint) WKT() string {
	return fmt.Sprintf("POINT(%v %v)", p.Lng, p.Lat)
}

// ParseWKT parses a POINT(lng lat) string.
func ParseWKT(s string) (*GeoPoint, error) {
	var p GeoPoint
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "POINT(%g %g)", &p.Lng, &p.Lat); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
	}
	return &p, nil
}

// Record is the canonical, validated and enriched form of one raw record.
type Record struct {
	Title       string
	Description string
	Address     string
	SourceType  SourceType
	SourceName  string
	SourceURL   string
	ImageURL    string
	Location    *GeoPoint
	Rating      *float64
	PriceRange  PriceRange
	Categories  []string
	Language    string

	// ProcessedText is the concatenated embedding input.
	ProcessedText string
	// Embedding is present only when embedding generation succeeded.
	Embedding []float32

	Amenities   []string
	Images      []string
	Destination string
	Origin      string

	// Attributes holds source-specific keys with no canonical field (flight times, carriers, prices).
	Attributes map[string]any

	ExtractedAt time.Time
	ProcessedAt time.Time

	// RawData is the upstream payload, kept for audit and never validated.
	RawData any
}

// StoredRecord is the persisted shape of a Record.
// Empty fields are omitted when encoded.
type StoredRecord struct {
	ID            ID             `json:"id"`
	SourceType    SourceType     `json:"source_type"`
	SourceName    string         `json:"source_name,omitempty"`
	SourceURL     string         `json:"source_url,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Address       string         `json:"address,omitempty"`
	Location      *GeoPoint      `json:"location,omitempty"`
	Rating        *float64       `json:"rating,omitempty"`
	PriceRange    PriceRange     `json:"price_range,omitempty"`
	Categories    []string       `json:"categories,omitempty"`
	Language      string         `json:"language,omitempty"`
	ProcessedText string         `json:"processed_text,omitempty"`
	Embedding     []float32      `json:"embedding,omitempty"`
	RawJSON       map[string]any `json:"raw_json,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NaturalKey returns the deduplication key of a stored record.
// The source URL wins when present; otherwise title and source type identify the record.
func (r *StoredRecord) NaturalKey() string {
	return MatchFor(r).Key()
}

// Match identifies records considered the same item.
type Match struct {
	SourceURL  string
	Title      string
	SourceType SourceType
}

// MatchFor builds the duplicate predicate for a stored record.
func MatchFor(r *StoredRecord) Match {
	if r.SourceURL != "" {
		return Match{SourceURL: r.SourceURL}
	}
	return Match{Title: r.Title, SourceType: r.SourceType}
}

// ByURL reports whether the match compares source URLs.
func (m Match) ByURL() bool {
	return m.SourceURL != ""
}

// Key renders the match as a stable string.
func (m Match) Key() string {
	if m.ByURL() {
		return "url:" + m.SourceURL
	}
	return "title:" + string(m.SourceType) + ":" + m.Title
}

// Stats summarizes the contents of a store.
type Stats struct {
	Total           int
	BySourceType    map[SourceType]int
	RecentAdditions int
	LastUpdated     time.Time
}
