package provider

import (
	"errors"
	"fmt"
)

// Source identification
type SourceType string

const (
	SourceGoAPI  SourceType = "go_api"
	SourceMirror SourceType = "mirror"
)

// ErrUpstream marks every failure to obtain a page from any source.
var ErrUpstream = errors.New("upstream unavailable")

// Common error types
type UpstreamError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// Error codes
const (
	ErrBadStatus      = "bad_status"
	ErrBadPayload     = "bad_payload"
	ErrUnauthorized   = "unauthorized"
	ErrNotFound       = "not_found"
	ErrTransport      = "transport"
	ErrInvalidRequest = "invalid_request"
	ErrNoSource       = "no_source"
)
