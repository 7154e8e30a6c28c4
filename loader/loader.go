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


// Package loader writes canonical records to a storage.Repository in
// batches and exposes the maintenance operations over stored data.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

// DefaultBatchSize is the number of records written per InsertMany call.
const DefaultBatchSize = 100

// Summary counts the outcome of a BulkInsert.
type Summary struct {
	Batches    int
	Inserted   int
	Duplicates int
	Rejected   int
	Failed     int
}

// Loader persists canonical records.
type Loader struct {
	repo      storage.Repository
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithBatchSize sets how many records go into one atomic insert.
func WithBatchSize(n int) Option {
	return func(l *Loader) error {
		if n < 1 {
			return fmt.Errorf("%w: batch size %d", ErrInvalidOption, n)
		}
		l.batchSize = n
		return nil
	}
}

// WithClock replaces the time source for timestamps and cutoffs.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) error {
		l.now = now
		return nil
	}
}

// WithLogger sets the logger for the loader.
// If not provided, slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		l.logger = logger
		return nil
	}
}

// New creates a Loader over repo.
func New(repo storage.Repository, opts ...Option) (*Loader, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	l := &Loader{
		repo:      repo,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "loader")
	return l, nil
}

// BulkInsert writes records in sequential batches. Each batch is inserted
// atomically; if that fails the batch is retried record by record with a
// duplicate check. Only a cancelled context or a closed store is returned
// as an error; per-record failures are counted in the Summary.
func (l *Loader) BulkInsert(ctx context.Context, records []*core.Record) (Summary, error) {
	var summary Summary
	if len(records) == 0 {
		l.logger.Info("no records to insert")
		return summary, nil
	}

	l.logger.Info("starting bulk insert", "records", len(records), "batch_size", l.batchSize)
	for start := 0; start < len(records); start += l.batchSize {
		end := min(start+l.batchSize, len(records))
		summary.Batches++
		if err := l.insertBatch(ctx, records[start:end], &summary); err != nil {
			return summary, err
		}
		l.logger.Debug("batch complete", "batch", summary.Batches, "records", end-start)
	}

	l.logger.Info("bulk insert complete",
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates,
		"rejected", summary.Rejected,
		"failed", summary.Failed)
	return summary, nil
}

func (l *Loader) insertBatch(ctx context.Context, batch []*core.Record, summary *Summary) error {
	now := l.now()
	stored := make([]*core.StoredRecord, 0, len(batch))
	rejected := 0
	for _, r := range batch {
		s, err := Transform(r, now)
		if err != nil {
			l.logger.Warn("rejecting record", "title", titleOf(r), "err", err)
			rejected++
			continue
		}
		stored = append(stored, s)
	}
	summary.Rejected += rejected

	if len(stored) == 0 {
		l.logger.Warn("no valid records in batch after transformation")
		return nil
	}

	inserted, err := l.repo.InsertMany(ctx, stored...)
	if err == nil {
		summary.Inserted += len(inserted)
		return nil
	}
	if fatal(ctx, err) {
		return err
	}

	l.logger.Warn("batch insert failed, inserting individually", "records", len(stored), "err", err)
	return l.insertIndividually(ctx, batch, summary)
}

// insertIndividually re-transforms the original batch so a failed InsertMany
// leaves no partial state behind.
func (l *Loader) insertIndividually(ctx context.Context, batch []*core.Record, summary *Summary) error {
	now := l.now()
	for _, r := range batch {
		s, err := Transform(r, now)
		if err != nil {
			continue
		}

		dup, err := l.repo.Exists(ctx, core.MatchFor(s))
		if err != nil {
			if fatal(ctx, err) {
				return err
			}
			l.logger.Error("error checking for duplicates", "title", s.Title, "err", err)
			dup = false
		}
		if dup {
			l.logger.Debug("skipped duplicate", "title", s.Title)
			summary.Duplicates++
			continue
		}

		if _, err := l.repo.InsertOne(ctx, s); err != nil {
			if fatal(ctx, err) {
				return err
			}
			if errors.Is(err, storage.ErrDuplicateKey) {
				summary.Duplicates++
				continue
			}
			l.logger.Error("error inserting individual record", "title", s.Title, "err", err)
			summary.Failed++
			continue
		}
		summary.Inserted++
	}
	return nil
}

func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, storage.ErrStorageClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func titleOf(r *core.Record) string {
	if r == nil {
		return ""
	}
	return r.Title
}
