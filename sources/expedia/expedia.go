// Package expedia extracts hotel listings from the Expedia Rapid API.
package expedia

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/sources"
)

const (
	// Name is the adapter identity written to source_name.
	Name = "expedia"
	// Service is the rate-limit bucket.
	Service = "expedia"

	DefaultBaseURL = "https://api.ean.com/2.4"
	dateLayout     = "2006-01-02"
)

// HotelQuery selects hotels for one destination. Zero dates default to
// check-in in 30 days and check-out two nights later.
type HotelQuery struct {
	Destination string
	CheckIn     time.Time
	CheckOut    time.Time
}

// Adapter extracts hotels from Expedia.
type Adapter struct {
	http      *sources.HTTPClient
	baseURL   string
	apiKey    string
	apiSecret string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter) error

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(a *Adapter) error {
		a.baseURL = strings.TrimSuffix(u, "/")
		return nil
	}
}

// WithCredentials sets the Rapid API key and secret. Both are required for live calls.
func WithCredentials(key, secret string) Option {
	return func(a *Adapter) error {
		a.apiKey = key
		a.apiSecret = secret
		return nil
	}
}

// WithClock replaces the time source used for default dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) error {
		a.now = now
		return nil
	}
}

// WithLogger sets the logger for the adapter.
// If not provided, slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) error {
		a.logger = logger
		return nil
	}
}

// New creates an Expedia adapter.
func New(client *sources.HTTPClient, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil http client", sources.ErrInvalidOption)
	}
	a := &Adapter{
		http:    client,
		baseURL: DefaultBaseURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("source", Name)
	return a, nil
}

// Task wraps ExtractHotels for the orchestrator.
func (a *Adapter) Task(q HotelQuery) sources.Task {
	return sources.Task{
		Source:  Name,
		Service: Service,
		Label:   "hotels in " + q.Destination,
		Extract: func(ctx context.Context) sources.Result {
			return a.ExtractHotels(ctx, q)
		},
	}
}

// ExtractHotels returns hotels for the destination, or fixtures when the
// live path is unavailable.
func (a *Adapter) ExtractHotels(ctx context.Context, q HotelQuery) sources.Result {
	if a.apiKey == "" || a.apiSecret == "" {
		a.logger.Warn("API credentials not configured, returning mock data", "destination", q.Destination)
		return sources.Fallback(a.Fixtures(q.Destination), sources.ErrMissingCredentials)
	}

	now := a.now()
	checkIn, checkOut := q.CheckIn, q.CheckOut
	if checkIn.IsZero() {
		checkIn = now.AddDate(0, 0, 30)
	}
	if checkOut.IsZero() {
		checkOut = now.AddDate(0, 0, 32)
	}

	destinationID, err := a.destinationID(ctx, q.Destination)
	if err != nil {
		a.logger.Error("could not find destination ID", "destination", q.Destination, "err", err)
		return sources.Fallback(a.Fixtures(q.Destination), err)
	}

	params := url.Values{}
	params.Set("destinationId", destinationID)
	params.Set("checkInDate", checkIn.Format(dateLayout))
	params.Set("checkOutDate", checkOut.Format(dateLayout))
	params.Set("rooms", "1")
	params.Set("adults", "2")
	params.Set("currency", "USD")
	params.Set("locale", "en_US")

	var resp struct {
		Properties []json.RawMessage `json:"properties"`
	}
	if err := a.http.GetJSON(ctx, a.baseURL+"/hotels/search?"+params.Encode(), a.headers(), &resp); err != nil {
		a.logger.Error("hotel search failed", "destination", q.Destination, "err", err)
		return sources.Fallback(a.Fixtures(q.Destination), err)
	}

	return sources.Live(a.parseProperties(resp.Properties, q.Destination, now))
}

func (a *Adapter) headers() http.Header {
	return http.Header{
		"Authorization": {"Bearer " + a.apiKey},
		"Content-Type":  {"application/json"},
		"Accept":        {"application/json"},
	}
}

func (a *Adapter) destinationID(ctx context.Context, destination string) (string, error) {
	params := url.Values{}
	params.Set("query", destination)
	params.Set("locale", "en_US")

	var resp struct {
		Results []struct {
			DestinationID any `json:"destinationId"`
		} `json:"results"`
	}
	if err := a.http.GetJSON(ctx, a.baseURL+"/geography/destinations?"+params.Encode(), a.headers(), &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 || resp.Results[0].DestinationID == nil {
		return "", fmt.Errorf("%w: destination %q", sources.ErrNotFound, destination)
	}
	id := core.AsText(resp.Results[0].DestinationID)
	if id == "" {
		return "", fmt.Errorf("%w: destination %q", sources.ErrNotFound, destination)
	}
	return id, nil
}

type ratePlan struct {
	Price struct {
		Current string `json:"current"`
	} `json:"price"`
}

type address struct {
	StreetAddress string `json:"streetAddress"`
	Locality      string `json:"locality"`
	CountryName   string `json:"countryName"`
}

type coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type guestRating struct {
	Rating any `json:"rating"`
}

type image struct {
	URL string `json:"url"`
}

type property struct {
	ID          any         `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Address     address     `json:"address"`
	Coordinates coordinates `json:"coordinates"`
	GuestRating guestRating `json:"guestRating"`
	RatePlans   []ratePlan  `json:"ratePlans"`
	Amenities   []string    `json:"amenities"`
	Images      []image     `json:"images"`
}

// parseProperties converts search results. A property that fails to decode
// is logged and skipped.
func (a *Adapter) parseProperties(items []json.RawMessage, destination string, now time.Time) []core.RawRecord {
	records := make([]core.RawRecord, 0, len(items))
	for i, item := range items {
		var p property
		if err := json.Unmarshal(item, &p); err != nil {
			a.logger.Error("error parsing hotel property", "index", i, "err", err)
			continue
		}
		if p.Name == "" {
			continue
		}

		var raw map[string]any
		_ = json.Unmarshal(item, &raw)

		images := make([]string, 0, len(p.Images))
		for _, img := range p.Images {
			if img.URL != "" {
				images = append(images, img.URL)
			}
		}

		rec := core.RawRecord{
			core.FieldSourceType:  string(core.SourceTypeAPI),
			core.FieldSourceName:  Name,
			core.FieldTitle:       p.Name,
			core.FieldDescription: p.Description,
			core.FieldAddress:     formatAddress(p.Address.StreetAddress, p.Address.Locality, p.Address.CountryName),
			core.FieldRating:      p.GuestRating.Rating,
			core.FieldPriceRange:  string(priceRange(p.RatePlans)),
			core.FieldCategories:  []string{"hotel", "accommodation"},
			core.FieldAmenities:   p.Amenities,
			core.FieldImages:      images,
			core.FieldSourceURL:   fmt.Sprintf("https://www.expedia.com/h%s.Hotel-Information", core.AsText(p.ID)),
			core.FieldRawData:     raw,
			core.FieldDestination: destination,
			core.FieldExtractedAt: now.Format(time.RFC3339Nano),
		}
		if p.Coordinates.Latitude != nil && p.Coordinates.Longitude != nil {
			rec[core.FieldLocation] = map[string]any{
				"lat": *p.Coordinates.Latitude,
				"lng": *p.Coordinates.Longitude,
			}
		}
		records = append(records, rec)
	}
	return records
}

func formatAddress(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// priceRange buckets the lowest current rate. Rates that fail to parse are ignored.
func priceRange(plans []ratePlan) core.PriceRange {
	lowest := -1.0
	for _, plan := range plans {
		s := strings.NewReplacer("$", "", ",", "").Replace(plan.Price.Current)
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			continue
		}
		if lowest < 0 || v < lowest {
			lowest = v
		}
	}

	switch {
	case lowest < 0:
		return core.PriceModerate
	case lowest < 100:
		return core.PriceBudget
	case lowest < 300:
		return core.PriceModerate
	default:
		return core.PriceLuxury
	}
}
