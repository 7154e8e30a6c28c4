package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/poiesic/wayfarer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("url:https://example.com")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.Len(t, data, 8)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{1, 2})
	assert.True(t, errors.Is(err, ErrTruncatedData))
}

func TestMarshalRecord_OmitsEmptyValues(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	record := &core.StoredRecord{
		ID:         7,
		SourceType: core.SourceTypeAPI,
		Title:      "Grand Hotel Rome",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	data, err := MarshalRecord(record)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"title":"Grand Hotel Rome"`)
	assert.NotContains(t, s, "description")
	assert.NotContains(t, s, "location")
	assert.NotContains(t, s, "embedding")

	decoded, err := UnmarshalRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record.Title, decoded.Title)
	assert.True(t, now.Equal(decoded.CreatedAt))
}

func TestUnmarshalRecord_Invalid(t *testing.T) {
	_, err := UnmarshalRecord([]byte("{not json"))
	assert.True(t, errors.Is(err, ErrSerializationFailed))
}
