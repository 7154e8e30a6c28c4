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
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/loader"
	"github.com/poiesic/wayfarer/sources"
)

// RateLimiter admits calls to a named service.
type RateLimiter interface {
	Acquire(ctx context.Context, service string) error
}

// RecordProcessor converts one raw record.
type RecordProcessor interface {
	Process(ctx context.Context, raw core.RawRecord) (*core.Record, error)
}

// RecordLoader persists canonical records.
type RecordLoader interface {
	BulkInsert(ctx context.Context, records []*core.Record) (loader.Summary, error)
}

var _ RecordProcessor = (*Processor)(nil)

// Pipeline runs one batch pass: extract from every task in order, process
// all raw records on a worker pool, then bulk load the survivors.
type Pipeline struct {
	limiter   RateLimiter
	processor RecordProcessor
	loader    RecordLoader
	pool      *ants.Pool
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithClock replaces the time source used for run durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		p.now = now
		return nil
	}
}

// NewPipeline creates a pipeline. Call Release when done.
func NewPipeline(limiter RateLimiter, processor RecordProcessor, loader RecordLoader, opts ...Option) (*Pipeline, error) {
	if limiter == nil {
		return nil, ErrLimiterRequired
	}
	if processor == nil {
		return nil, ErrProcessorRequired
	}
	if loader == nil {
		return nil, ErrLoaderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		limiter:   limiter,
		processor: processor,
		loader:    loader,
		pool:      pool,
		now:       time.Now,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// DegradedSource records a task that served fixtures instead of live data.
type DegradedSource struct {
	Source string
	Label  string
	Reason string
}

// RunReport summarizes one Run.
type RunReport struct {
	RunID     string
	RawCounts map[string]int
	Degraded  []DegradedSource
	Raw       int
	Processed int
	Dropped   int
	Load      loader.Summary
	Duration  time.Duration
}

// Run executes the tasks sequentially, each behind its rate limit, then
// processes and loads everything they produced. A cancelled context during
// extraction aborts the run; a load error is returned as a pipeline failure.
// Per-record failures are logged and counted as dropped.
func (p *Pipeline) Run(ctx context.Context, tasks []sources.Task) (RunReport, error) {
	start := p.now()
	report := RunReport{
		RunID:     uuid.NewString(),
		RawCounts: make(map[string]int),
	}
	logger := p.logger.With("run_id", report.RunID)
	logger.Info("starting run", "tasks", len(tasks))

	var raws []core.RawRecord
	for _, task := range tasks {
		if err := p.limiter.Acquire(ctx, task.Service); err != nil {
			report.Duration = p.now().Sub(start)
			return report, fmt.Errorf("%w: %s: %w", ErrRunAborted, task.Service, err)
		}

		res := p.extract(ctx, task, logger)
		report.RawCounts[task.Source] += len(res.Records)
		if res.Degraded {
			reason := ""
			if res.Reason != nil {
				reason = res.Reason.Error()
			}
			report.Degraded = append(report.Degraded, DegradedSource{Source: task.Source, Label: task.Label, Reason: reason})
			logger.Warn("source degraded, using fallback data", "source", task.Source, "service", task.Service, "reason", reason, "records", len(res.Records))
		} else {
			logger.Info("extracted records", "source", task.Source, "service", task.Service, "records", len(res.Records))
		}
		raws = append(raws, res.Records...)
	}
	report.Raw = len(raws)

	records := p.processAll(ctx, raws, logger)
	report.Processed = len(records)
	report.Dropped = len(raws) - len(records)
	logger.Info("processed records", "processed", report.Processed, "dropped", report.Dropped)

	summary, err := p.loader.BulkInsert(ctx, records)
	report.Load = summary
	report.Duration = p.now().Sub(start)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	logger.Info("run complete",
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates,
		"failed", summary.Failed,
		"duration", report.Duration)
	return report, nil
}

// extract runs one task. A nil or panicking Extract yields an empty degraded result.
func (p *Pipeline) extract(ctx context.Context, task sources.Task, logger *slog.Logger) (res sources.Result) {
	if task.Extract == nil {
		return sources.Fallback(nil, fmt.Errorf("%w: task %q has no extractor", ErrInvalidOption, task.Label))
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("source panicked", "source", task.Source, "panic", r)
			res = sources.Fallback(nil, fmt.Errorf("%w: %v", ErrRecordPanic, r))
		}
	}()
	return task.Extract(ctx)
}

// processAll fans raw records out to the pool and returns the survivors
// in input order.
func (p *Pipeline) processAll(ctx context.Context, raws []core.RawRecord, logger *slog.Logger) []*core.Record {
	results := make([]*core.Record, len(raws))
	var wg sync.WaitGroup

	for i, raw := range raws {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			rec, err := p.processOne(ctx, raw)
			if err != nil {
				logger.Warn("dropping record", "source", raw.String(core.FieldSourceName), "title", raw.String(core.FieldTitle), "err", err)
				return
			}
			results[i] = rec
		})
		if err != nil {
			wg.Done()
			logger.Error("error submitting record", "index", i, "err", err)
		}
	}
	wg.Wait()

	out := make([]*core.Record, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

func (p *Pipeline) processOne(ctx context.Context, raw core.RawRecord) (rec *core.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("%w: %v", ErrRecordPanic, r)
		}
	}()
	return p.processor.Process(ctx, raw)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
