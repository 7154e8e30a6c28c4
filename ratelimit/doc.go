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


// Package ratelimit provides sliding-window admission control keyed by
// upstream service name.
//
// Each service keeps the timestamps of its admissions inside the window.
// Acquire evicts expired timestamps, admits the caller when fewer than
// MaxRequests remain, and otherwise sleeps until the oldest timestamp
// expires (plus a small margin) before trying again:
//
//	limiter, err := ratelimit.New(ratelimit.DefaultLimits())
//	if err := limiter.Acquire(ctx, "expedia"); err != nil {
//	    return err // context cancelled
//	}
//
// Waiters are not queued in arrival order.
package ratelimit
