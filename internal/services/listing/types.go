package listing

import (
	"encoding/json"

	"godash/internal/listview"
	"godash/internal/provider"
	"godash/internal/views"
)

// Snapshot is a session's state together with the query it derives.
type Snapshot struct {
	ID          string         `json:"id"`
	View        string         `json:"view"`
	Endpoint    string         `json:"endpoint"`
	State       views.State    `json:"state"`
	Query       listview.Query `json:"query"`
	QueryString string         `json:"query_string"`
}

// PageResult is one loaded page of a session.
type PageResult struct {
	Snapshot
	Meta    listview.Meta       `json:"meta"`
	Results []json.RawMessage   `json:"results"`
	Source  provider.SourceType `json:"source"`
	// Stale marks a page served by a fallback source.
	Stale bool `json:"stale"`
}

// ServiceError represents a listing service error
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return "listing service " + e.Op + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
