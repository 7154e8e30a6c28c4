package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a single updating progress line for a reembedding run.
type ProgressTracker struct {
	mu             sync.Mutex
	writer         io.Writer
	now            func() time.Time
	total          int
	done           int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
}

// NewProgressTracker creates a tracker that reports every reportInterval records.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval <= 0 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		now:            time.Now,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start resets counters and starts the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = p.now()
	p.started = true
	p.done = 0
	p.failed = 0
	p.lastReported = 0
}

// Add records the outcome of one batch.
// embedded and failed are capped so their sum never exceeds total.
func (p *ProgressTracker) Add(embedded, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.done = min(p.done+embedded, p.total)
	p.failed = min(p.failed+failed, p.total-p.done)

	if p.seen()-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.seen()
	}
}

// Finish prints the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return p.now().Sub(p.startTime)
}

func (p *ProgressTracker) seen() int {
	return p.done + p.failed
}

// report must be called with the lock held.
func (p *ProgressTracker) report() {
	elapsed := p.now().Sub(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.done) / elapsed.Seconds()
	}
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.seen()) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rEmbedded %d/%d (%.1f%%), %d failed - %.1f records/s",
		p.done, p.total, percentage, p.failed, rate)
}
