package base

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"godash/internal/provider"
)

// EndpointValidator checks list endpoint paths before they are joined to the base URL
type EndpointValidator struct {
	patterns []*regexp.Regexp
}

// NewEndpointValidator accepts versioned REST collection paths such as "api/v2/event/"
func NewEndpointValidator() *EndpointValidator {
	return &EndpointValidator{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^api/v\d+/[a-z0-9_-]+/$`),
			regexp.MustCompile(`^api/v\d+/[a-z0-9_-]+/[a-z0-9_-]+/$`),
		},
	}
}

// ValidateEndpoint validates and normalizes an endpoint path
func (v *EndpointValidator) ValidateEndpoint(endpoint string) (string, error) {
	normalized := strings.TrimLeft(strings.TrimSpace(endpoint), "/")
	if normalized != "" && !strings.HasSuffix(normalized, "/") {
		normalized += "/"
	}

	for _, pattern := range v.patterns {
		if pattern.MatchString(normalized) {
			return normalized, nil
		}
	}

	return "", &provider.UpstreamError{
		Code:    provider.ErrInvalidRequest,
		Message: fmt.Sprintf("invalid list endpoint %q", endpoint),
	}
}

// PagingValidator validates limit and offset parameters
type PagingValidator struct {
	maxLimit int
}

// NewPagingValidator creates a paging validator; maxLimit 0 means unbounded
func NewPagingValidator(maxLimit int) *PagingValidator {
	return &PagingValidator{maxLimit: maxLimit}
}

// ValidatePaging validates the limit and offset of a list query
func (v *PagingValidator) ValidatePaging(query url.Values) error {
	for _, key := range []string{"limit", "offset"} {
		raw := query.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return &provider.UpstreamError{
				Code:    provider.ErrInvalidRequest,
				Message: fmt.Sprintf("%s must be a non-negative integer, got %q", key, raw),
			}
		}
		if key == "limit" && v.maxLimit > 0 && n > v.maxLimit {
			return &provider.UpstreamError{
				Code:    provider.ErrInvalidRequest,
				Message: fmt.Sprintf("limit must not exceed %d", v.maxLimit),
			}
		}
	}
	return nil
}

var paramName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// RequestValidator provides common list request validation
type RequestValidator struct {
	endpointValidator *EndpointValidator
	pagingValidator   *PagingValidator
}

// NewRequestValidator creates a new request validator
func NewRequestValidator(maxLimit int) *RequestValidator {
	return &RequestValidator{
		endpointValidator: NewEndpointValidator(),
		pagingValidator:   NewPagingValidator(maxLimit),
	}
}

// ValidateListReq validates a list request and returns the normalized endpoint
func (v *RequestValidator) ValidateListReq(endpoint string, query url.Values) (string, error) {
	normalized, err := v.endpointValidator.ValidateEndpoint(endpoint)
	if err != nil {
		return "", err
	}

	if err := v.pagingValidator.ValidatePaging(query); err != nil {
		return "", err
	}

	// Parameter names go to the upstream filter backend verbatim
	for name := range query {
		if !paramName.MatchString(name) {
			return "", &provider.UpstreamError{
				Code:    provider.ErrInvalidRequest,
				Message: fmt.Sprintf("invalid query parameter %q", name),
			}
		}
	}

	// Ordering is a parameter name with an optional direction prefix
	if ordering := query.Get("ordering"); ordering != "" && !paramName.MatchString(strings.TrimPrefix(ordering, "-")) {
		return "", &provider.UpstreamError{
			Code:    provider.ErrInvalidRequest,
			Message: fmt.Sprintf("invalid ordering %q", ordering),
		}
	}

	return normalized, nil
}
