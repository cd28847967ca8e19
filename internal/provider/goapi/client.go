package goapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"godash/internal/config"
	"godash/internal/domain/shared"
	"godash/internal/listview"
	"godash/internal/provider"
	"godash/internal/provider/base"

	"github.com/rs/zerolog/log"
)

// Client reads paged list endpoints of the upstream REST API.
type Client struct {
	http      *base.HTTPClient
	validator *base.RequestValidator
}

// New builds a client from the API config.
func New(cfg config.APICfg) *Client {
	hc := base.NewHTTPClient(string(provider.SourceGoAPI), cfg.TimeoutSec)
	hc.SetBaseURL(cfg.BaseURL)
	hc.SetToken(cfg.Token)
	hc.SetRetry(cfg.MaxRetries, cfg.RetryInitial)
	return NewWithHTTP(hc)
}

// NewWithHTTP wraps an already configured HTTP client.
func NewWithHTTP(hc *base.HTTPClient) *Client {
	return &Client{http: hc, validator: base.NewRequestValidator(listview.FetchAllPageSize)}
}

// FetchPage requests endpoint with the given query and decodes the
// {count, next, previous, results} envelope.
func (c *Client) FetchPage(ctx context.Context, endpoint string, query url.Values) (*shared.RawPage, error) {
	path, err := c.validator.ValidateListReq(endpoint, query)
	if err != nil {
		return nil, err
	}
	if enc := query.Encode(); enc != "" {
		path += "?" + enc
	}

	start := time.Now()
	resp, err := c.http.Get(ctx, path, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &provider.UpstreamError{Code: provider.ErrTransport, Message: err.Error()}
	}

	if !resp.IsSuccess() {
		return nil, statusError(endpoint, resp)
	}

	var page shared.RawPage
	if err := resp.DecodeJSON(&page); err != nil {
		return nil, &provider.UpstreamError{
			Code:       provider.ErrBadPayload,
			Message:    fmt.Sprintf("decode %s: %v", endpoint, err),
			StatusCode: resp.StatusCode,
		}
	}
	if page.Results == nil {
		return nil, &provider.UpstreamError{
			Code:       provider.ErrBadPayload,
			Message:    fmt.Sprintf("decode %s: response has no results list", endpoint),
			StatusCode: resp.StatusCode,
		}
	}

	log.Debug().
		Str("endpoint", endpoint).
		Str("query", query.Encode()).
		Int("count", page.Count).
		Int("results", len(page.Results)).
		Dur("took", time.Since(start)).
		Msg("fetched page")
	return &page, nil
}

func statusError(endpoint string, resp *base.HTTPResponse) error {
	code := provider.ErrBadStatus
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = provider.ErrUnauthorized
	case http.StatusNotFound:
		code = provider.ErrNotFound
	}
	body := resp.String()
	if len(body) > 512 {
		body = body[:512]
	}
	return &provider.UpstreamError{
		Code:       code,
		Message:    fmt.Sprintf("%s returned %s", endpoint, http.StatusText(resp.StatusCode)),
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var ue *provider.UpstreamError
	return errors.As(err, &ue) && ue.Code == provider.ErrNotFound
}
