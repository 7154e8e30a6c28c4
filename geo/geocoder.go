package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/poiesic/wayfarer/core"
	"golang.org/x/time/rate"
)

// Geocoder resolves a free-form address to coordinates.
// Implementations must be safe for concurrent use.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*core.GeoPoint, error)
}

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "travel-assistant-etl"
	DefaultTimeout   = 10 * time.Second
	DefaultInterval  = time.Second
)

// Nominatim geocodes through the OpenStreetMap Nominatim search API.
// Requests are paced to one per interval across all callers.
type Nominatim struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	client    *http.Client
	pacer     *rate.Limiter
	logger    *slog.Logger
}

var _ Geocoder = (*Nominatim)(nil)

// Option configures a Nominatim client.
type Option func(*Nominatim) error

// WithBaseURL points the client at another Nominatim instance.
func WithBaseURL(u string) Option {
	return func(n *Nominatim) error {
		if _, err := url.Parse(u); err != nil || u == "" {
			return fmt.Errorf("%w: base url %q", ErrInvalidOption, u)
		}
		n.baseURL = u
		return nil
	}
}

// WithUserAgent sets the User-Agent header, which Nominatim's usage policy requires.
func WithUserAgent(ua string) Option {
	return func(n *Nominatim) error {
		n.userAgent = ua
		return nil
	}
}

// WithTimeout bounds each lookup, including time spent waiting for the pacer.
func WithTimeout(d time.Duration) Option {
	return func(n *Nominatim) error {
		if d <= 0 {
			return fmt.Errorf("%w: timeout %s", ErrInvalidOption, d)
		}
		n.timeout = d
		return nil
	}
}

// WithInterval sets the minimum spacing between requests.
func WithInterval(d time.Duration) Option {
	return func(n *Nominatim) error {
		if d <= 0 {
			n.pacer = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		n.pacer = rate.NewLimiter(rate.Every(d), 1)
		return nil
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Nominatim) error {
		n.client = c
		return nil
	}
}

// WithLogger sets the logger for the geocoder.
// If not provided, slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Nominatim) error {
		n.logger = logger
		return nil
	}
}

// NewNominatim creates a Nominatim geocoder.
func NewNominatim(opts ...Option) (*Nominatim, error) {
	n := &Nominatim{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		client:    &http.Client{},
		pacer:     rate.NewLimiter(rate.Every(DefaultInterval), 1),
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	n.logger = n.logger.With("component", "geocoder")
	return n, nil
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the first match for address.
func (n *Nominatim) Geocode(ctx context.Context, address string) (*core.GeoPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeocodeFailed, err)
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeocodeFailed, err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeocodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrGeocodeFailed, resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeocodeFailed, err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoResults, address)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad latitude %q", ErrGeocodeFailed, places[0].Lat)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad longitude %q", ErrGeocodeFailed, places[0].Lon)
	}

	n.logger.Debug("geocoded address", "address", address, "match", places[0].DisplayName)
	return &core.GeoPoint{Lat: lat, Lng: lng}, nil
}
