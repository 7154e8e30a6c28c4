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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records sent to the embedder per call.
	BatchSize int

	// ReportInterval is how often to report progress, in records.
	ReportInterval int

	// MaxRetries is the maximum number of embedding attempts per batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// ContinueOnError logs a failed batch and moves on instead of aborting.
	ContinueOnError bool

	Selection
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Validate rejects non-positive sizes and attempt counts.
func (c *Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.BatchSize)
	case c.ReportInterval <= 0:
		return fmt.Errorf("%w: report interval %d", ErrInvalidConfig, c.ReportInterval)
	case c.MaxRetries <= 0:
		return fmt.Errorf("%w: max retries %d", ErrInvalidConfig, c.MaxRetries)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay %s", ErrInvalidConfig, c.RetryDelay)
	}
	return nil
}

// Result summarizes a reembedding run.
type Result struct {
	// Candidates is the number of records selected for embedding.
	Candidates int
	// Embedded is the number of records whose vector was written.
	Embedded int
	// Failed counts records in batches that could not be embedded.
	Failed int
	// Skipped counts selected records with no text to embed.
	Skipped  int
	Duration time.Duration
}

// Reembedder orchestrates reembedding of the records in a store.
type Reembedder struct {
	repo      storage.Repository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress receives the human-readable progress line, typically os.Stderr.
func NewReembedder(repo storage.Repository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		logger:    slog.Default().With("component", "reembed"),
	}, nil
}

// Run embeds every selected record and reports progress to the configured writer.
// On a batch failure it returns the partial result and the error unless
// ContinueOnError is set.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	selected, skipped, err := collect(ctx, r.repo, r.config.Selection)
	if err != nil {
		return nil, fmt.Errorf("selecting records: %w", err)
	}

	result := &Result{Candidates: len(selected) + skipped, Skipped: skipped}
	if len(selected) == 0 {
		fmt.Fprintf(r.progress, "No records need embedding\n")
		return result, nil
	}

	fmt.Fprintf(r.progress, "Embedding %d records (batch size: %d)\n", len(selected), r.config.BatchSize)
	tracker := NewProgressTracker(r.progress, len(selected), r.config.ReportInterval)
	tracker.Start()

	for _, batch := range batches(selected, r.config.BatchSize) {
		n, err := r.processor.Process(ctx, batch)
		result.Embedded += n
		if err != nil {
			result.Failed += len(batch) - n
			tracker.Add(n, len(batch)-n)
			if !r.config.ContinueOnError || ctx.Err() != nil {
				result.Duration = tracker.Elapsed()
				return result, err
			}
			r.logger.Warn("batch failed, continuing", "size", len(batch), "error", err)
			continue
		}
		tracker.Add(n, 0)
	}

	tracker.Finish()
	result.Duration = tracker.Elapsed()
	r.logger.Info("reembedding complete",
		"embedded", result.Embedded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", result.Duration)
	return result, nil
}
