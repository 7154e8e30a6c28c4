// Package manual loads hand-curated records from a YAML or JSON file.
//
// The file holds a list of raw records using the canonical field names.
// Each entry defaults to source_type "manual" and source_name "manual".
//
//	- title: Carmel Market
//	  description: Open-air market with produce, spices and street food
//	  address: HaCarmel St, Tel Aviv
//	  categories: [market, food]
//	  source_url: https://example.com/carmel-market
package manual

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/sources"
	"gopkg.in/yaml.v3"
)

const (
	// Name is the default source_name.
	Name = "manual"
	// Service is not in the default rate-limit table, so manual tasks are never throttled.
	Service = "manual"
)

// LoadFile reads records from the file at path.
func LoadFile(path string, now time.Time) ([]core.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, now)
}

// Load decodes a list of records from r and fills the provenance defaults.
// Entries that are not mappings are rejected.
func Load(r io.Reader, now time.Time) ([]core.RawRecord, error) {
	var entries []map[string]any
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", sources.ErrDecode, err)
	}

	extractedAt := now.UTC().Format(time.RFC3339)
	records := make([]core.RawRecord, 0, len(entries))
	for i, e := range entries {
		if e == nil {
			return nil, fmt.Errorf("%w: entry %d is empty", sources.ErrDecode, i)
		}
		rec := core.RawRecord(e)
		setDefault(rec, core.FieldSourceType, string(core.SourceTypeManual))
		setDefault(rec, core.FieldSourceName, Name)
		setDefault(rec, core.FieldExtractedAt, extractedAt)
		records = append(records, rec)
	}
	return records, nil
}

func setDefault(r core.RawRecord, key, value string) {
	if !r.Has(key) {
		r[key] = value
	}
}

// Task wraps already loaded records for the orchestrator.
func Task(label string, records []core.RawRecord) sources.Task {
	return sources.Task{
		Source:  Name,
		Service: Service,
		Label:   label,
		Extract: func(ctx context.Context) sources.Result {
			out := make([]core.RawRecord, len(records))
			for i, r := range records {
				out[i] = r.Clone()
			}
			return sources.Live(out)
		},
	}
}
