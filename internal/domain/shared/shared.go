package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DisasterType is the upstream disaster classification (flood, cyclone, epidemic...).
type DisasterType struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// Country is the compact country record embedded in most resources.
type Country struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	ISO     string `json:"iso,omitempty"`
	ISO3    string `json:"iso3,omitempty"`
	Society string `json:"society_name,omitempty"`
	Region  *int64 `json:"region,omitempty"`
}

// Date accepts both "2006-01-02" and RFC3339 timestamps from the API.
// A JSON null or empty string decodes to the zero Date.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly}

// ParseDate parses any of the date layouts used upstream.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}

// HasNext reports whether the upstream advertised a following page.
func (p *Page[T]) HasNext() bool { return p != nil && p.Next != "" }

// RawPage keeps results undecoded so that sources and caches stay resource agnostic.
type RawPage = Page[json.RawMessage]

// Decode converts a raw page into typed records.
func Decode[T any](raw *RawPage) (*Page[T], error) {
	if raw == nil {
		return &Page[T]{Results: []T{}}, nil
	}
	out := &Page[T]{
		Count:    raw.Count,
		Next:     raw.Next,
		Previous: raw.Previous,
		Results:  make([]T, 0, len(raw.Results)),
	}
	for i, r := range raw.Results {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("decode result %d: %w", i, err)
		}
		out.Results = append(out.Results, item)
	}
	return out, nil
}
