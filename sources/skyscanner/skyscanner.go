// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package skyscanner extracts flight itineraries from the Skyscanner
// partner API. A search is a three step exchange: resolve place IDs,
// create a pricing session, then poll the session until it completes.
package skyscanner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/sources"
)

const (
	// Name is the adapter identity written to source_name.
	Name = "skyscanner"
	// Service is the rate-limit bucket.
	Service = "skyscanner"

	DefaultBaseURL      = "https://partners.api.skyscanner.net/apiservices"
	DefaultMaxPolls     = 10
	DefaultPollInterval = 2 * time.Second
	DefaultOrigin       = "NYC"
	DefaultDestination  = "LON"

	rapidAPIHost = "skyscanner-skyscanner-flight-search-v1.p.rapidapi.com"
	dateLayout   = "2006-01-02"

	statusComplete = "UpdatesComplete"
	statusPending  = "UpdatesPending"
)

// FlightQuery selects one route. Empty fields take the defaults
// NYC, LON and a departure 30 days out.
type FlightQuery struct {
	Origin      string
	Destination string
	Date        time.Time
}

func (q FlightQuery) withDefaults(now time.Time) FlightQuery {
	if q.Origin == "" {
		q.Origin = DefaultOrigin
	}
	if q.Destination == "" {
		q.Destination = DefaultDestination
	}
	if q.Date.IsZero() {
		q.Date = now.AddDate(0, 0, 30)
	}
	return q
}

// Adapter extracts flights from Skyscanner.
type Adapter struct {
	http         *sources.HTTPClient
	baseURL      string
	apiKey       string
	maxPolls     int
	pollInterval time.Duration
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *slog.Logger
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

// WithAPIKey sets the RapidAPI key.
func WithAPIKey(key string) Option {
	return func(a *Adapter) error {
		a.apiKey = key
		return nil
	}
}

// WithPolling bounds the session poll loop.
func WithPolling(maxPolls int, interval time.Duration) Option {
	return func(a *Adapter) error {
		if maxPolls <= 0 || interval < 0 {
			return fmt.Errorf("%w: polling %d every %s", sources.ErrInvalidOption, maxPolls, interval)
		}
		a.maxPolls = maxPolls
		a.pollInterval = interval
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

// New creates a Skyscanner adapter.
func New(client *sources.HTTPClient, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil http client", sources.ErrInvalidOption)
	}
	a := &Adapter{
		http:         client,
		baseURL:      DefaultBaseURL,
		maxPolls:     DefaultMaxPolls,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
		sleep:        sleepContext,
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

// Task wraps ExtractFlights for the orchestrator.
func (a *Adapter) Task(q FlightQuery) sources.Task {
	q = q.withDefaults(a.now())
	return sources.Task{
		Source:  Name,
		Service: Service,
		Label:   "flights " + q.Origin + " to " + q.Destination,
		Extract: func(ctx context.Context) sources.Result {
			return a.ExtractFlights(ctx, q)
		},
	}
}

// ExtractFlights searches one route. Missing credentials, unresolvable
// places and a failed session create fall back to fixtures. Once a
// session exists, a poll that does not complete yields an empty live result.
func (a *Adapter) ExtractFlights(ctx context.Context, q FlightQuery) sources.Result {
	now := a.now()
	q = q.withDefaults(now)

	if a.apiKey == "" {
		a.logger.Warn("API key not configured, returning mock data", "origin", q.Origin, "destination", q.Destination)
		return sources.Fallback(a.Fixtures(q.Origin, q.Destination), sources.ErrMissingCredentials)
	}

	originID, err := a.placeID(ctx, q.Origin)
	if err == nil {
		var destID string
		destID, err = a.placeID(ctx, q.Destination)
		if err == nil {
			return a.search(ctx, q, originID, destID, now)
		}
	}
	a.logger.Error("could not resolve places", "origin", q.Origin, "destination", q.Destination, "err", err)
	return sources.Fallback(a.Fixtures(q.Origin, q.Destination), err)
}

func (a *Adapter) search(ctx context.Context, q FlightQuery, originID, destID string, now time.Time) sources.Result {
	form := url.Values{}
	form.Set("originPlace", originID)
	form.Set("destinationPlace", destID)
	form.Set("outboundDate", q.Date.Format(dateLayout))
	form.Set("adults", "1")
	form.Set("currency", "USD")
	form.Set("locale", "en-US")
	form.Set("country", "US")

	header := a.headers()
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := a.http.Fetch(ctx, http.MethodPost, a.baseURL+"/pricing/v1.0", header, []byte(form.Encode()))
	if err != nil {
		a.logger.Error("search session failed", "origin", q.Origin, "destination", q.Destination, "err", err)
		return sources.Fallback(a.Fixtures(q.Origin, q.Destination), err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		err := fmt.Errorf("%w: create session returned %d", sources.ErrUnexpectedStatus, resp.StatusCode)
		a.logger.Error("search session failed", "origin", q.Origin, "destination", q.Destination, "err", err)
		return sources.Fallback(a.Fixtures(q.Origin, q.Destination), err)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		a.logger.Warn("search session returned no location")
		return sources.Live(nil)
	}
	sessionKey := path.Base(strings.TrimSuffix(location, "/"))

	return sources.Live(a.poll(ctx, sessionKey, now))
}

// poll fetches the session until it completes, at most maxPolls times.
func (a *Adapter) poll(ctx context.Context, sessionKey string, now time.Time) []core.RawRecord {
	params := url.Values{}
	params.Set("pageIndex", "0")
	params.Set("pageSize", "10")
	target := a.baseURL + "/pricing/uk2/v1.0/" + url.PathEscape(sessionKey) + "?" + params.Encode()

	for i := 0; i < a.maxPolls; i++ {
		body, err := a.http.Get(ctx, target, a.headers())
		if err != nil {
			a.logger.Error("error polling search results", "session", sessionKey, "err", err)
			return nil
		}

		var page pricingResponse
		if err := sources.DecodeJSON(body, &page); err != nil {
			a.logger.Error("error polling search results", "session", sessionKey, "err", err)
			return nil
		}

		switch page.Status {
		case statusComplete:
			return a.parseFlights(page, now)
		case statusPending:
			a.logger.Debug("search results pending", "session", sessionKey, "poll", i+1)
			if err := a.sleep(ctx, a.pollInterval); err != nil {
				return nil
			}
		default:
			a.logger.Warn("unexpected search status", "session", sessionKey, "status", page.Status)
			return nil
		}
	}

	a.logger.Warn("search results did not complete", "session", sessionKey, "polls", a.maxPolls)
	return nil
}

func (a *Adapter) headers() http.Header {
	return http.Header{
		"X-Rapidapi-Key":  {a.apiKey},
		"X-Rapidapi-Host": {rapidAPIHost},
	}
}

func (a *Adapter) placeID(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("locale", "en-US")

	var resp struct {
		Places []struct {
			PlaceID any `json:"PlaceId"`
		} `json:"Places"`
	}
	if err := a.http.GetJSON(ctx, a.baseURL+"/autosuggest/v1.0/US/USD/en-US/?"+params.Encode(), a.headers(), &resp); err != nil {
		return "", err
	}
	if len(resp.Places) == 0 {
		return "", fmt.Errorf("%w: place %q", sources.ErrNotFound, query)
	}
	id := core.AsText(resp.Places[0].PlaceID)
	if id == "" {
		return "", fmt.Errorf("%w: place %q", sources.ErrNotFound, query)
	}
	return id, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// flexID accepts numeric or string identifiers.
// Objects and arrays are rejected.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case nil, string, float64:
		*f = flexID(core.AsText(v))
		return nil
	}
	return fmt.Errorf("%w: identifier %s", sources.ErrDecode, data)
}
