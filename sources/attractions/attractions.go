// Package attractions scrapes attraction listing pages. Each listing is a
// `[data-attraction]` card; fields are read from child elements marked
// with data-field attributes.
package attractions

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/sources"
)

const (
	// Name is the adapter identity written to source_name.
	Name = "tripadvisor"
	// Service is the rate-limit bucket.
	Service = "tripadvisor"

	cardSelector = "[data-attraction]"
)

// AttractionQuery selects the listing page for one destination.
type AttractionQuery struct {
	Destination string
}

// Adapter scrapes attraction cards from an HTML listing.
type Adapter struct {
	http    *sources.HTTPClient
	baseURL string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter) error

// WithBaseURL sets the listing root. The destination is passed as the
// `q` query parameter. Without a base URL the adapter serves fixtures.
func WithBaseURL(u string) Option {
	return func(a *Adapter) error {
		if u == "" {
			a.baseURL = ""
			return nil
		}
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("%w: base url: %w", sources.ErrInvalidOption, err)
		}
		a.baseURL = u
		return nil
	}
}

// WithClock replaces the time source used for timestamps.
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

// New creates an attractions adapter.
func New(client *sources.HTTPClient, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil http client", sources.ErrInvalidOption)
	}
	a := &Adapter{http: client, now: time.Now}
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

// Task wraps ExtractAttractions for the orchestrator.
func (a *Adapter) Task(q AttractionQuery) sources.Task {
	return sources.Task{
		Source:  Name,
		Service: Service,
		Label:   "attractions in " + q.Destination,
		Extract: func(ctx context.Context) sources.Result {
			return a.ExtractAttractions(ctx, q)
		},
	}
}

// ExtractAttractions fetches the listing page for the destination and
// returns one record per card.
func (a *Adapter) ExtractAttractions(ctx context.Context, q AttractionQuery) sources.Result {
	if a.baseURL == "" {
		a.logger.Warn("listing URL not configured, returning mock data", "destination", q.Destination)
		return sources.Fallback(a.Fixtures(q.Destination), sources.ErrNotConfigured)
	}

	pageURL, err := a.listingURL(q.Destination)
	if err != nil {
		a.logger.Error("invalid listing URL", "destination", q.Destination, "err", err)
		return sources.Fallback(a.Fixtures(q.Destination), err)
	}

	body, err := a.http.Get(ctx, pageURL.String(), nil)
	if err != nil {
		a.logger.Error("error fetching listing", "destination", q.Destination, "err", err)
		return sources.Fallback(a.Fixtures(q.Destination), err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		err = fmt.Errorf("%w: %w", sources.ErrDecode, err)
		a.logger.Error("error parsing listing", "destination", q.Destination, "err", err)
		return sources.Fallback(a.Fixtures(q.Destination), err)
	}

	extractedAt := a.now().Format(time.RFC3339Nano)
	var cards []core.RawRecord
	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		rec, ok := a.parseCard(card, pageURL, q.Destination, extractedAt)
		if !ok {
			a.logger.Warn("skipping attraction card without name", "index", i)
			return
		}
		cards = append(cards, rec)
	})
	return sources.Live(cards)
}

func (a *Adapter) listingURL(destination string) (*url.URL, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sources.ErrNotConfigured, err)
	}
	params := u.Query()
	params.Set("q", destination)
	u.RawQuery = params.Encode()
	return u, nil
}

// parseCard reads one card. The raw keys summary, link, img_url and
// location_lat/location_lng are left for the processor to alias.
func (a *Adapter) parseCard(card *goquery.Selection, page *url.URL, destination, extractedAt string) (core.RawRecord, bool) {
	name := field(card, "name")
	if name == "" {
		name = strings.TrimSpace(card.AttrOr("data-attraction", ""))
	}
	if name == "" {
		return nil, false
	}

	rec := core.RawRecord{
		core.FieldSourceType:  string(core.SourceTypeScraping),
		core.FieldSourceName:  Name,
		core.FieldTitle:       name,
		core.FieldDestination: destination,
		core.FieldExtractedAt: extractedAt,
	}
	if summary := field(card, "summary"); summary != "" {
		rec["summary"] = summary
	}
	if rating := field(card, "rating"); rating != "" {
		rec[core.FieldRating] = rating
	}
	if addr := field(card, "address"); addr != "" {
		rec[core.FieldAddress] = addr
	}
	if price := field(card, "price"); price != "" {
		rec[core.FieldPriceRange] = price
	}

	if href, ok := card.Find(`a[data-field="link"], a[href]`).First().Attr("href"); ok {
		if link := resolve(page, href); link != "" {
			rec["link"] = link
		}
	}
	if src, ok := card.Find("img[src]").First().Attr("src"); ok {
		if img := resolve(page, src); img != "" {
			rec["img_url"] = img
		}
	}

	var categories []string
	card.Find(`[data-field="category"]`).Each(func(_ int, s *goquery.Selection) {
		if c := strings.TrimSpace(s.Text()); c != "" {
			categories = append(categories, c)
		}
	})
	if len(categories) == 0 {
		categories = []string{"attraction"}
	}
	rec[core.FieldCategories] = categories

	if lat, lng := card.AttrOr("data-lat", ""), card.AttrOr("data-lng", ""); lat != "" && lng != "" {
		rec["location_lat"] = lat
		rec["location_lng"] = lng
	}

	html, _ := goquery.OuterHtml(card)
	rec[core.FieldRawData] = map[string]any{"html": html}
	return rec, true
}

func field(card *goquery.Selection, name string) string {
	return strings.TrimSpace(card.Find(`[data-field="` + name + `"]`).First().Text())
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
