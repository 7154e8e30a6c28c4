package geo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatim_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Piazza del Colosseo, Rome", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "wayfarer-test", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `[{"lat": "41.8902", "lon": "12.4922", "display_name": "Colosseo"}]`)
	}))
	defer srv.Close()

	g, err := NewNominatim(WithBaseURL(srv.URL), WithUserAgent("wayfarer-test"), WithInterval(0))
	require.NoError(t, err)

	pt, err := g.Geocode(context.Background(), "Piazza del Colosseo, Rome")
	require.NoError(t, err)
	assert.InDelta(t, 41.8902, pt.Lat, 1e-9)
	assert.InDelta(t, 12.4922, pt.Lng, 1e-9)
}

func TestNominatim_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no results", http.StatusOK, `[]`, ErrNoResults},
		{"server error", http.StatusBadGateway, ``, ErrGeocodeFailed},
		{"bad json", http.StatusOK, `{`, ErrGeocodeFailed},
		{"bad latitude", http.StatusOK, `[{"lat": "north", "lon": "1"}]`, ErrGeocodeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g, err := NewNominatim(WithBaseURL(srv.URL), WithInterval(0))
			require.NoError(t, err)

			_, err = g.Geocode(context.Background(), "Nowhere")
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNominatim_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	g, err := NewNominatim(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond), WithInterval(0))
	require.NoError(t, err)

	_, err = g.Geocode(context.Background(), "Slow Street")
	assert.True(t, errors.Is(err, ErrGeocodeFailed))
}

func TestNominatim_Pacing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `[{"lat": "1", "lon": "2"}]`)
	}))
	defer srv.Close()

	g, err := NewNominatim(WithBaseURL(srv.URL), WithInterval(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := g.Geocode(context.Background(), "Somewhere")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, int32(3), hits.Load())
}

func TestNewNominatim_InvalidOptions(t *testing.T) {
	_, err := NewNominatim(WithTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewNominatim(WithBaseURL(""))
	assert.ErrorIs(t, err, ErrInvalidOption)
}
