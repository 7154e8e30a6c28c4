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


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/geo"
)

const (
	DefaultGeocodeTimeout = 10 * time.Second
	DefaultEmbedTimeout   = 30 * time.Second
)

// Processor turns one raw record into a canonical record.
// It is safe for concurrent use as long as its collaborators are.
type Processor struct {
	geocoder       geo.Geocoder
	embedder       ai.Embedder
	geocodeTimeout time.Duration
	embedTimeout   time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor) error

// WithGeocoder enables address geocoding.
func WithGeocoder(g geo.Geocoder) ProcessorOption {
	return func(p *Processor) error {
		p.geocoder = g
		return nil
	}
}

// WithEmbedder enables embedding generation.
func WithEmbedder(e ai.Embedder) ProcessorOption {
	return func(p *Processor) error {
		p.embedder = e
		return nil
	}
}

// WithGeocodeTimeout bounds each geocoding call.
func WithGeocodeTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) error {
		if d <= 0 {
			return fmt.Errorf("%w: geocode timeout %s", ErrInvalidOption, d)
		}
		p.geocodeTimeout = d
		return nil
	}
}

// WithEmbedTimeout bounds each embedding call.
func WithEmbedTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) error {
		if d <= 0 {
			return fmt.Errorf("%w: embed timeout %s", ErrInvalidOption, d)
		}
		p.embedTimeout = d
		return nil
	}
}

// WithProcessorClock replaces the time source for ProcessedAt.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) error {
		p.now = now
		return nil
	}
}

// WithProcessorLogger sets the logger.
// If not provided, slog.Default() will be used.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) error {
		p.logger = logger
		return nil
	}
}

// NewProcessor creates a Processor. Without a geocoder or embedder those
// stages are skipped.
func NewProcessor(opts ...ProcessorOption) (*Processor, error) {
	p := &Processor{
		geocodeTimeout: DefaultGeocodeTimeout,
		embedTimeout:   DefaultEmbedTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "processor")
	return p, nil
}

// Process validates, cleans, decodes, enriches and embeds one raw record.
// The only error is a validation failure wrapping core.ErrInvalidRecord;
// every later stage degrades its own field and lets the record through.
// raw is not modified.
func (p *Processor) Process(ctx context.Context, raw core.RawRecord) (*core.Record, error) {
	if err := core.ValidateRaw(raw); err != nil {
		p.logger.Warn("dropping invalid record", "source", raw.String(core.FieldSourceName), "err", err)
		return nil, err
	}

	cleaned := cleanRecord(raw)
	// Markup and stripped symbols can shrink a title below the minimum.
	if err := core.ValidateRaw(cleaned); err != nil {
		p.logger.Warn("dropping record after cleaning", "source", raw.String(core.FieldSourceName), "title", raw.String(core.FieldTitle), "err", err)
		return nil, err
	}

	record := core.DecodeRecord(cleaned)

	p.enrich(ctx, record)
	p.embed(ctx, record)

	return record, nil
}
