package wayfarer

import (
	"fmt"

	"github.com/poiesic/wayfarer/config"
	"github.com/poiesic/wayfarer/sources"
	"github.com/poiesic/wayfarer/sources/attractions"
	"github.com/poiesic/wayfarer/sources/expedia"
	"github.com/poiesic/wayfarer/sources/feeds"
	"github.com/poiesic/wayfarer/sources/skyscanner"
)

// Adapters holds one instance of every source adapter.
type Adapters struct {
	Expedia     *expedia.Adapter
	Skyscanner  *skyscanner.Adapter
	Feeds       *feeds.Adapter
	Attractions *attractions.Adapter
}

// NewAdapters builds the source adapters from the config. API adapters share
// one HTTP client; the scraper gets its own, paced by the scraping delay.
func (db *Database) NewAdapters() (*Adapters, error) {
	cfg := db.cfg
	api, err := sources.NewHTTPClient(
		sources.WithUserAgent(cfg.UserAgent),
		sources.WithTimeout(cfg.HTTPTimeout),
		sources.WithRetry(cfg.MaxRetries, cfg.RetryDelay),
		sources.WithHTTPLogger(db.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}
	scraper, err := sources.NewHTTPClient(
		sources.WithUserAgent(cfg.UserAgent),
		sources.WithTimeout(cfg.HTTPTimeout),
		sources.WithRetry(cfg.MaxRetries, cfg.RetryDelay),
		sources.WithPacing(cfg.ScrapingDelay),
		sources.WithHTTPLogger(db.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scraping client: %w", err)
	}

	var a Adapters
	if a.Expedia, err = expedia.New(api,
		expedia.WithCredentials(cfg.Credentials.ExpediaKey, cfg.Credentials.ExpediaSecret),
		expedia.WithLogger(db.logger),
	); err != nil {
		return nil, err
	}
	if a.Skyscanner, err = skyscanner.New(api,
		skyscanner.WithAPIKey(cfg.Credentials.SkyscannerKey),
		skyscanner.WithLogger(db.logger),
	); err != nil {
		return nil, err
	}
	if a.Feeds, err = feeds.New(api, feeds.WithLogger(db.logger)); err != nil {
		return nil, err
	}
	if a.Attractions, err = attractions.New(scraper,
		attractions.WithBaseURL(cfg.Plan.AttractionsURL),
		attractions.WithLogger(db.logger),
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// Tasks expands a plan into source tasks in run order: hotels per destination,
// flights per route, feeds, then attractions per destination.
func (a *Adapters) Tasks(plan config.Plan) []sources.Task {
	var tasks []sources.Task
	for _, dest := range plan.Destinations {
		tasks = append(tasks, a.Expedia.Task(expedia.HotelQuery{Destination: dest}))
	}
	for _, r := range plan.Routes {
		tasks = append(tasks, a.Skyscanner.Task(skyscanner.FlightQuery{Origin: r.Origin, Destination: r.Destination}))
	}
	for _, f := range plan.Feeds {
		tasks = append(tasks, a.Feeds.Task(f))
	}
	for _, dest := range plan.Destinations {
		tasks = append(tasks, a.Attractions.Task(attractions.AttractionQuery{Destination: dest}))
	}
	return tasks
}

// Plan returns the configured plan, narrowed when testMode is set.
func (db *Database) Plan(testMode bool) config.Plan {
	if testMode {
		return db.cfg.Plan.TestSubset()
	}
	return db.cfg.Plan
}
