package reembed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// steppedClock advances by step on every reading.
func steppedClock(step time.Duration) func() time.Time {
	t := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func newTracker(buf *bytes.Buffer, total, interval int) *ProgressTracker {
	tracker := NewProgressTracker(buf, total, interval)
	tracker.now = steppedClock(time.Second)
	return tracker
}

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Add(25, 0)
	tracker.Add(25, 0)
	tracker.Add(50, 0)

	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
	assert.Contains(t, buf.String(), "100/100")
	assert.Contains(t, buf.String(), "100.0%")
}

func TestProgressTracker_Failures(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, 10, 1)

	tracker.Start()
	tracker.Add(4, 0)
	tracker.Add(0, 6)

	lines := strings.Split(buf.String(), "\r")
	last := lines[len(lines)-1]
	assert.Contains(t, last, "4/10")
	assert.Contains(t, last, "6 failed")
	assert.Contains(t, last, "100.0%")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Add(75, 0)
	tracker.Finish()

	assert.Contains(t, buf.String(), "75/100")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, 0, 10)

	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0")
}

func TestProgressTracker_AddBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Add(150, 20)

	assert.Contains(t, buf.String(), "100/100")
	assert.Contains(t, buf.String(), "0 failed")
}

func TestProgressTracker_Rate(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, 10, 100)

	tracker.Start()
	tracker.Add(10, 0)
	tracker.Finish()

	assert.Contains(t, buf.String(), "records/s")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, 100, 10)

	tracker.Add(10, 0)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, 1000, 100)
	tracker.Start()

	tracker.Add(50, 0)
	assert.Empty(t, buf.String(), "under interval")

	tracker.Add(50, 0)
	assert.NotEmpty(t, buf.String(), "at interval")

	buf.Reset()
	tracker.Add(99, 0)
	assert.Empty(t, buf.String(), "interval restarts after a report")
}

func TestNewProgressTracker_NonPositiveInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, 3, 0)
	tracker.Start()
	tracker.Add(1, 0)
	assert.Contains(t, buf.String(), "1/3")
}
