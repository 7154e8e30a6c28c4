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


package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Unlimited is reported by Remaining for services without a configured limit.
const Unlimited = math.MaxInt

// DefaultMargin is added to every computed wait so the oldest timestamp has
// certainly left the window when the caller wakes up.
const DefaultMargin = time.Second

// Limit caps a service to MaxRequests admissions per sliding Window.
type Limit struct {
	MaxRequests int           `yaml:"requests"`
	Window      time.Duration `yaml:"window"`
}

// DefaultLimits returns the published quotas of the upstream services.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"expedia":     {MaxRequests: 100, Window: time.Hour},
		"skyscanner":  {MaxRequests: 1000, Window: 24 * time.Hour},
		"instagram":   {MaxRequests: 200, Window: time.Hour},
		"youtube":     {MaxRequests: 10000, Window: 24 * time.Hour},
		"tripadvisor": {MaxRequests: 100, Window: time.Hour},
	}
}

type service struct {
	mu     sync.Mutex
	limit  Limit
	stamps []time.Time // ascending
}

// evict drops timestamps that have left the window. Caller holds mu.
func (s *service) evict(now time.Time) {
	i := 0
	for i < len(s.stamps) && now.Sub(s.stamps[i]) >= s.limit.Window {
		i++
	}
	if i > 0 {
		s.stamps = append(s.stamps[:0], s.stamps[i:]...)
	}
}

// live counts timestamps still inside the window without mutating state.
func (s *service) live(now time.Time) (int, time.Time) {
	for i, t := range s.stamps {
		if now.Sub(t) < s.limit.Window {
			return len(s.stamps) - i, t
		}
	}
	return 0, time.Time{}
}

// Limiter grants admission per named service using a sliding window.
// The set of services is fixed at construction; each has its own mutex.
type Limiter struct {
	services map[string]*service
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	margin   time.Duration
	logger   *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter) error

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) error {
		if now == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidOption)
		}
		l.now = now
		return nil
	}
}

// WithSleeper replaces the wait primitive. It must return ctx.Err() when ctx ends first.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) error {
		if sleep == nil {
			return fmt.Errorf("%w: nil sleeper", ErrInvalidOption)
		}
		l.sleep = sleep
		return nil
	}
}

// WithMargin sets the extra wait added after the window elapses.
func WithMargin(d time.Duration) Option {
	return func(l *Limiter) error {
		if d < 0 {
			return fmt.Errorf("%w: negative margin %s", ErrInvalidOption, d)
		}
		l.margin = d
		return nil
	}
}

// WithLogger sets the logger for the limiter.
// If not provided, slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) error {
		l.logger = logger
		return nil
	}
}

// New creates a limiter for the given per-service limits.
func New(limits map[string]Limit, opts ...Option) (*Limiter, error) {
	l := &Limiter{
		services: make(map[string]*service, len(limits)),
		now:      time.Now,
		sleep:    sleepContext,
		margin:   DefaultMargin,
	}

	for name, limit := range limits {
		if limit.MaxRequests <= 0 || limit.Window <= 0 {
			return nil, fmt.Errorf("%w: %s: %d per %s", ErrInvalidLimit, name, limit.MaxRequests, limit.Window)
		}
		l.services[name] = &service{limit: limit}
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "ratelimit")

	return l, nil
}

// Acquire blocks until a request to svc may proceed.
// Services without a configured limit are admitted immediately.
// The only error returned is ctx.Err().
func (l *Limiter) Acquire(ctx context.Context, svc string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, ok := l.services[svc]
	if !ok {
		return nil
	}

	for {
		s.mu.Lock()
		now := l.now()
		s.evict(now)
		if len(s.stamps) < s.limit.MaxRequests {
			s.stamps = append(s.stamps, now)
			s.mu.Unlock()
			return nil
		}
		wait := s.stamps[0].Add(s.limit.Window).Sub(now) + l.margin
		s.mu.Unlock()

		l.logger.Info("rate limit reached, waiting", "service", svc, "wait", wait)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Remaining reports how many admissions svc has left in the current window.
// It never goes below zero and does not modify limiter state.
func (l *Limiter) Remaining(svc string) int {
	s, ok := l.services[svc]
	if !ok {
		return Unlimited
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := s.live(l.now())
	return max(0, s.limit.MaxRequests-n)
}

// ResetIn reports how long until the oldest admission leaves the window.
func (l *Limiter) ResetIn(svc string) time.Duration {
	s, ok := l.services[svc]
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := l.now()
	n, oldest := s.live(now)
	if n == 0 {
		return 0
	}
	return max(0, oldest.Add(s.limit.Window).Sub(now))
}

// Services lists the configured service names.
func (l *Limiter) Services() []string {
	names := make([]string, 0, len(l.services))
	for name := range l.services {
		names = append(names, name)
	}
	return names
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
