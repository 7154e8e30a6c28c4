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


package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinTitleLength is the minimum trimmed title length, in characters.
const MinTitleLength = 3

// Storage bounds, in characters.
const (
	MaxTitleLength         = 500
	MaxDescriptionLength   = 2000
	MaxAddressLength       = 500
	MaxProcessedTextLength = 5000
)

// ValidateRaw checks the only hard requirements on a raw record.
//
// Validation rules:
//   - title must be present and at least MinTitleLength characters after trimming
//   - source_type must be present and non-blank
//
// Everything else is optional and handled by later stages.
func ValidateRaw(raw RawRecord) error {
	if raw == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	title := strings.TrimSpace(raw.String(FieldTitle))
	if title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingTitle)
	}
	if utf8.RuneCountInString(title) < MinTitleLength {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecord, ErrTitleTooShort, title)
	}

	if strings.TrimSpace(raw.String(FieldSourceType)) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingSourceType)
	}

	return nil
}

// ValidateStored validates a record about to be written.
//
// Validation rules:
//   - Title must not be empty
//   - text fields must respect the storage bounds
//   - SourceType must be a known value
func ValidateStored(record *StoredRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidStoredRecord)
	}
	if record.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidStoredRecord, ErrMissingTitle)
	}
	if !record.SourceType.Valid() {
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidStoredRecord, record.SourceType)
	}

	bounds := []struct {
		field string
		value string
		max   int
	}{
		{"title", record.Title, MaxTitleLength},
		{"description", record.Description, MaxDescriptionLength},
		{"address", record.Address, MaxAddressLength},
		{"processed_text", record.ProcessedText, MaxProcessedTextLength},
	}
	for _, b := range bounds {
		if utf8.RuneCountInString(b.value) > b.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidStoredRecord, b.field, b.max)
		}
	}

	return nil
}

// Truncate shortens s to at most max characters.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
