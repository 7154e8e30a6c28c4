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


// Package wayfarer wires the configured store, embedder, geocoder, rate
// limiter and source adapters into a runnable ingestion pipeline.
package wayfarer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/ai/openai"
	"github.com/poiesic/wayfarer/config"
	"github.com/poiesic/wayfarer/geo"
	"github.com/poiesic/wayfarer/ingestion"
	"github.com/poiesic/wayfarer/loader"
	"github.com/poiesic/wayfarer/ratelimit"
	"github.com/poiesic/wayfarer/reembed"
	"github.com/poiesic/wayfarer/search"
	"github.com/poiesic/wayfarer/storage"
	"github.com/poiesic/wayfarer/storage/badger"
	"github.com/poiesic/wayfarer/storage/sqlite"
)

// Store URL schemes.
const (
	SchemeBadger = "badger"
	SchemeSQLite = "sqlite"
	SchemeMemory = "memory"
)

// OpenStore opens the repository named by rawURL: badger://path,
// sqlite://path or memory://.
func OpenStore(rawURL string) (storage.Repository, error) {
	scheme, path, ok := strings.Cut(rawURL, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStore, rawURL)
	}
	switch scheme {
	case SchemeMemory:
		return badger.NewMemoryRepository()
	case SchemeBadger:
		if path == "" {
			return nil, fmt.Errorf("%w: %q has no path", ErrUnsupportedStore, rawURL)
		}
		return badger.Open(path)
	case SchemeSQLite:
		if path == "" {
			return nil, fmt.Errorf("%w: %q has no path", ErrUnsupportedStore, rawURL)
		}
		return sqlite.Open(path)
	}
	return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedStore, scheme)
}

// Database owns the store and the enrichment services of one process.
type Database struct {
	cfg      *config.Config
	repo     storage.Repository
	embedder ai.Embedder
	geocoder geo.Geocoder
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	repo     storage.Repository
	embedder ai.Embedder
	geocoder geo.Geocoder
	logger   *slog.Logger
}

// WithRepository uses repo instead of opening cfg.StoreURL.
// The Database takes ownership and closes it.
func WithRepository(repo storage.Repository) DatabaseOption {
	return func(o *databaseOptions) {
		o.repo = repo
	}
}

// WithEmbedder uses e instead of building one from the embedding config.
func WithEmbedder(e ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = e
	}
}

// WithGeocoder uses g instead of the configured Nominatim client.
func WithGeocoder(g geo.Geocoder) DatabaseOption {
	return func(o *databaseOptions) {
		o.geocoder = g
	}
}

// WithLogger sets the logger for the database and everything it builds.
// If not provided, slog.Default() will be used.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the configured store and builds the embedder and geocoder
// the config enables.
func NewDatabase(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &databaseOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	db := &Database{
		cfg:      cfg,
		repo:     options.repo,
		embedder: options.embedder,
		geocoder: options.geocoder,
		logger:   options.logger,
	}

	if db.embedder == nil && cfg.Embedding.Enabled {
		embedder, err := openai.NewEmbedder(cfg.AIConfig())
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
		db.embedder = embedder
	}

	if db.geocoder == nil && cfg.Geocoding.Enabled {
		nominatim, err := geo.NewNominatim(
			geo.WithBaseURL(cfg.Geocoding.BaseURL),
			geo.WithInterval(cfg.Geocoding.Interval),
			geo.WithLogger(db.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("creating geocoder: %w", err)
		}
		db.geocoder = nominatim
	}

	if db.repo == nil {
		repo, err := OpenStore(cfg.StoreURL)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		db.repo = repo
	}
	return db, nil
}

// Close releases the store.
func (db *Database) Close() error {
	if err := db.repo.Close(); err != nil {
		db.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

// Repository returns the underlying store.
func (db *Database) Repository() storage.Repository {
	return db.repo
}

// Embedder returns the configured embedder, or nil when embeddings are disabled.
func (db *Database) Embedder() ai.Embedder {
	return db.embedder
}

// NewLoader builds a loader over the store using the configured batch size.
func (db *Database) NewLoader(opts ...loader.Option) (*loader.Loader, error) {
	opts = append([]loader.Option{
		loader.WithBatchSize(db.cfg.BatchSize),
		loader.WithLogger(db.logger),
	}, opts...)
	return loader.New(db.repo, opts...)
}

// NewProcessor builds a processor using whichever enrichment services are configured.
func (db *Database) NewProcessor(opts ...ingestion.ProcessorOption) (*ingestion.Processor, error) {
	base := []ingestion.ProcessorOption{ingestion.WithProcessorLogger(db.logger)}
	if db.embedder != nil {
		base = append(base, ingestion.WithEmbedder(db.embedder))
	}
	if db.geocoder != nil {
		base = append(base, ingestion.WithGeocoder(db.geocoder))
	}
	return ingestion.NewProcessor(append(base, opts...)...)
}

// NewLimiter builds a rate limiter from the configured table.
func (db *Database) NewLimiter(opts ...ratelimit.Option) (*ratelimit.Limiter, error) {
	opts = append([]ratelimit.Option{ratelimit.WithLogger(db.logger)}, opts...)
	return ratelimit.New(db.cfg.RateLimits, opts...)
}

// NewIngestionPipeline assembles limiter, processor and loader into a pipeline.
// Callers must Release it.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	limiter, err := db.NewLimiter()
	if err != nil {
		return nil, err
	}
	processor, err := db.NewProcessor()
	if err != nil {
		return nil, err
	}
	ld, err := db.NewLoader()
	if err != nil {
		return nil, err
	}

	base := []ingestion.Option{ingestion.WithLogger(db.logger)}
	if db.cfg.Workers > 0 {
		base = append(base, ingestion.WithPoolSize(db.cfg.Workers))
	}
	return ingestion.NewPipeline(limiter, processor, ld, append(base, opts...)...)
}

// NewReembedder builds a reembedder over the store and configured embedder.
func (db *Database) NewReembedder(cfg *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	if db.embedder == nil {
		return nil, ErrEmbeddingsDisabled
	}
	return reembed.NewReembedder(db.repo, db.embedder, cfg, progress)
}

// NewSearcher builds a searcher over the store and configured embedder.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	if db.embedder == nil {
		return nil, ErrEmbeddingsDisabled
	}
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.repo, db.embedder, opts...)
}
