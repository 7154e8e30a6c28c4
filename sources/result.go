package sources

import (
	"context"

	"github.com/poiesic/wayfarer/core"
)

// Result is the outcome of one adapter call.
// A degraded result carries fixture records and the reason live data was unavailable.
type Result struct {
	Records  []core.RawRecord
	Degraded bool
	Reason   error
}

// Live wraps records obtained from the upstream service.
func Live(records []core.RawRecord) Result {
	return Result{Records: records}
}

// Fallback wraps fixture records served because the live path failed.
func Fallback(records []core.RawRecord, reason error) Result {
	return Result{Records: records, Degraded: true, Reason: reason}
}

// Task is one unit of extraction work.
// Service names the rate-limit bucket the orchestrator acquires before Extract runs.
type Task struct {
	Source  string
	Service string
	Label   string
	Extract func(ctx context.Context) Result
}
