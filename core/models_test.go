package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "url key", content: "url:https://www.expedia.com/h42.Hotel-Information"},
		{name: "empty string", content: ""},
		{name: "title key", content: "title:scraping:Louvre Museum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("url:a")
	id2 := IDFromContent("url:b")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestMatchFor(t *testing.T) {
	tests := []struct {
		name    string
		record  StoredRecord
		wantKey string
		byURL   bool
	}{
		{
			name:    "url wins",
			record:  StoredRecord{Title: "Grand Hotel", SourceType: SourceTypeAPI, SourceURL: "https://x/1"},
			wantKey: "url:https://x/1",
			byURL:   true,
		},
		{
			name:    "title and type without url",
			record:  StoredRecord{Title: "Grand Hotel", SourceType: SourceTypeAPI},
			wantKey: "title:api:Grand Hotel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MatchFor(&tt.record)
			if m.Key() != tt.wantKey {
				t.Errorf("Key() = %q, want %q", m.Key(), tt.wantKey)
			}
			if m.ByURL() != tt.byURL {
				t.Errorf("ByURL() = %v, want %v", m.ByURL(), tt.byURL)
			}
			if tt.record.NaturalKey() != tt.wantKey {
				t.Errorf("NaturalKey() = %q, want %q", tt.record.NaturalKey(), tt.wantKey)
			}
		})
	}
}

func TestGeoPointWKT(t *testing.T) {
	p := GeoPoint{Lat: 40.7128, Lng: -74.006}
	wkt := p.WKT()
	if wkt != "POINT(-74.006 40.7128)" {
		t.Fatalf("WKT() = %q", wkt)
	}

	parsed, err := ParseWKT(wkt)
	if err != nil {
		t.Fatalf("ParseWKT() error = %v", err)
	}
	if *parsed != p {
		t.Errorf("ParseWKT() = %+v, want %+v", *parsed, p)
	}

	if _, err := ParseWKT("LINESTRING(1 2)"); err == nil {
		t.Error("ParseWKT() expected error for non-point")
	}
}

func TestSourceTypeValid(t *testing.T) {
	for _, st := range SourceTypes {
		if !st.Valid() {
			t.Errorf("%q should be valid", st)
		}
	}
	if SourceType("rss").Valid() {
		t.Error("unknown source type should be invalid")
	}
}
