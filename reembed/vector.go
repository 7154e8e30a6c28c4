package reembed

import (
	"math"
	"strings"

	"github.com/poiesic/wayfarer/core"
)

// NormalizeVector scales v to unit length and returns a new slice.
// A zero vector stays zero.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// embeddingText returns the text a record is embedded from.
// Records stored without processed text fall back to their descriptive fields.
func embeddingText(r *core.StoredRecord) string {
	if r.ProcessedText != "" {
		return r.ProcessedText
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{r.Title, r.Description, strings.Join(r.Categories, " "), r.Address} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
