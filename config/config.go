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


// Package config gathers the settings of a wayfarer run.
//
// Values are layered: Default, then environment (FromEnv), then a YAML
// file (LoadFile), then command-line flags applied by the caller. Validate
// checks the subset a run cannot start without.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/geo"
	"github.com/poiesic/wayfarer/ratelimit"
	"github.com/poiesic/wayfarer/sources"
	"github.com/poiesic/wayfarer/sources/feeds"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvStore            = "WAYFARER_STORE"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvExpediaKey       = "EXPEDIA_RAPID_API_KEY"
	EnvExpediaSecret    = "EXPEDIA_RAPID_API_SECRET"
	EnvSkyscannerKey    = "SKYSCANNER_API_KEY"
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvEmbeddingHost    = "WAYFARER_EMBEDDING_HOST"
	EnvEmbeddingModel   = "WAYFARER_EMBEDDING_MODEL"
	EnvAttractionsURL   = "WAYFARER_ATTRACTIONS_URL"
	DefaultStoreURL     = "badger://./wayfarer-data"
	DefaultBatchSize    = 100
	DefaultScrapeDelay  = 2 * time.Second
	defaultOpenAIHost   = "api.openai.com"
	defaultFeedCategory = "travel"
)

// Credentials holds upstream API secrets. Missing values put the matching
// adapter on its fixture path.
type Credentials struct {
	ExpediaKey    string `yaml:"expedia_api_key"`
	ExpediaSecret string `yaml:"expedia_api_secret"`
	SkyscannerKey string `yaml:"skyscanner_api_key"`
	OpenAIKey     string `yaml:"openai_api_key"`
}

// Embedding configures the embedding service.
type Embedding struct {
	Enabled bool          `yaml:"enabled"`
	Host    string        `yaml:"host"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Geocoding configures the Nominatim client.
type Geocoding struct {
	Enabled  bool          `yaml:"enabled"`
	BaseURL  string        `yaml:"base_url"`
	Interval time.Duration `yaml:"interval"`
}

// Route is one origin/destination pair searched for flights.
type Route struct {
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`
}

// Plan is the fixed set of source invocations making up a run.
type Plan struct {
	Destinations   []string          `yaml:"destinations"`
	Routes         []Route           `yaml:"routes"`
	Feeds          []feeds.FeedQuery `yaml:"feeds"`
	AttractionsURL string            `yaml:"attractions_url"`
}

// TestSubset narrows the plan to its first destination, route and feed.
func (p Plan) TestSubset() Plan {
	return Plan{
		Destinations:   firstOf(p.Destinations),
		Routes:         firstOf(p.Routes),
		Feeds:          firstOf(p.Feeds),
		AttractionsURL: p.AttractionsURL,
	}
}

func firstOf[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s[:1:1]
}

// Config holds every setting of a run.
type Config struct {
	StoreURL    string      `yaml:"store"`
	Credentials Credentials `yaml:"credentials"`
	Embedding   Embedding   `yaml:"embedding"`
	Geocoding   Geocoding   `yaml:"geocoding"`

	BatchSize     int           `yaml:"batch_size"`
	Workers       int           `yaml:"workers"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	ScrapingDelay time.Duration `yaml:"scraping_delay"`
	UserAgent     string        `yaml:"user_agent"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`

	RateLimits map[string]ratelimit.Limit `yaml:"rate_limits"`
	Plan       Plan                       `yaml:"plan"`
}

// Default returns the built-in settings.
func Default() *Config {
	emb := ai.DefaultConfig()
	return &Config{
		StoreURL: DefaultStoreURL,
		Embedding: Embedding{
			Enabled: true,
			Host:    emb.EmbeddingHost,
			Model:   emb.EmbeddingModel,
			Timeout: emb.Timeout,
		},
		Geocoding: Geocoding{
			Enabled:  true,
			BaseURL:  geo.DefaultBaseURL,
			Interval: geo.DefaultInterval,
		},
		BatchSize:     DefaultBatchSize,
		MaxRetries:    sources.DefaultMaxRetries,
		RetryDelay:    sources.DefaultRetryDelay,
		ScrapingDelay: DefaultScrapeDelay,
		UserAgent:     sources.DefaultUserAgent,
		HTTPTimeout:   sources.DefaultTimeout,
		RateLimits:    ratelimit.DefaultLimits(),
		Plan: Plan{
			Destinations: []string{
				"Tokyo", "Paris", "New York", "London", "Rome",
				"Barcelona", "Amsterdam", "Berlin", "Tel Aviv", "Istanbul",
			},
			Routes: []Route{{Origin: "NYC", Destination: "LON"}},
			Feeds: []feeds.FeedQuery{
				{Name: "youtube", Service: "youtube", Categories: []string{defaultFeedCategory, "video"}},
				{Name: "instagram", Service: "instagram", Categories: []string{defaultFeedCategory, "photo"}},
			},
		},
	}
}

// FromEnv returns Default overlaid with the process environment.
func FromEnv() *Config {
	c := Default()
	c.ApplyEnv(os.LookupEnv)
	return c
}

// ApplyEnv overlays the values lookup finds. WAYFARER_STORE wins over DATABASE_URL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.StoreURL, EnvStore, EnvDatabaseURL)
	set(&c.Credentials.ExpediaKey, EnvExpediaKey)
	set(&c.Credentials.ExpediaSecret, EnvExpediaSecret)
	set(&c.Credentials.SkyscannerKey, EnvSkyscannerKey)
	set(&c.Credentials.OpenAIKey, EnvOpenAIKey)
	set(&c.Embedding.Host, EnvEmbeddingHost)
	set(&c.Embedding.Model, EnvEmbeddingModel)
	set(&c.Plan.AttractionsURL, EnvAttractionsURL)
}

// LoadFile overlays the YAML file at path onto c.
// Keys absent from the file keep their current values; rate limits merge per service.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	defer f.Close()
	return c.Load(f)
}

// Load overlays YAML read from r onto c. Unknown keys are rejected.
func (c *Config) Load(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	return nil
}

// Validate checks the settings a run needs: a store URL, and an API key when
// embeddings go to the hosted OpenAI endpoint.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.StoreURL) == "" {
		missing = append(missing, EnvStore)
	}
	if c.Embedding.Enabled && c.Credentials.OpenAIKey == "" && strings.Contains(c.Embedding.Host, defaultOpenAIHost) {
		missing = append(missing, EnvOpenAIKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}

	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size %d", ErrInvalidSetting, c.BatchSize)
	case c.MaxRetries <= 0:
		return fmt.Errorf("%w: max_retries %d", ErrInvalidSetting, c.MaxRetries)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidSetting, c.Workers)
	case c.RetryDelay < 0, c.ScrapingDelay < 0:
		return fmt.Errorf("%w: negative delay", ErrInvalidSetting)
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("%w: http_timeout %s", ErrInvalidSetting, c.HTTPTimeout)
	}
	if c.Embedding.Enabled && c.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding model", ErrMissingSetting)
	}
	for svc, l := range c.RateLimits {
		if l.MaxRequests <= 0 || l.Window <= 0 {
			return fmt.Errorf("%w: rate limit for %s", ErrInvalidSetting, svc)
		}
	}
	return nil
}

// AIConfig returns the embedding service settings in the form ai expects.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Credentials.OpenAIKey),
		ai.WithTimeout(c.Embedding.Timeout),
	)
}
