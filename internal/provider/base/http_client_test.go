package base

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"godash/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, retries int) *HTTPClient {
	c := NewHTTPClient("test", 5)
	c.SetBaseURL(srv.URL)
	c.SetRetry(retries, time.Millisecond)
	return c
}

func TestGet_SendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/event/", r.URL.Path)
		assert.Equal(t, "Token abc", r.Header.Get("Authorization"))
		assert.Equal(t, "godash/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, 0)
	c.SetToken(" abc ")
	resp, err := c.Get(context.Background(), "/api/v2/event/", map[string]string{"X-Extra": "yes"})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())

	var body struct{ OK bool }
	require.NoError(t, resp.DecodeJSON(&body))
	assert.True(t, body.OK)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv, 3).Get(context.Background(), "api/v2/event/", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_ReturnsLastResponseWhenRetriesRunOut(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv, 2).Get(context.Background(), "api/v2/event/", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.True(t, resp.IsRetryable())
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv, 3).Get(context.Background(), "api/v2/event/", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv, 3).Get(ctx, "api/v2/event/", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSetBaseURL(t *testing.T) {
	c := NewHTTPClient("test", 0)
	c.SetBaseURL("https://goadmin.example.org")
	assert.Equal(t, "https://goadmin.example.org/", c.BaseURL())
	c.SetBaseURL("https://goadmin.example.org///")
	assert.Equal(t, "https://goadmin.example.org/", c.BaseURL())
}

func TestValidateListReq(t *testing.T) {
	v := NewRequestValidator(9999)

	tests := []struct {
		name     string
		endpoint string
		query    url.Values
		want     string
		wantErr  bool
	}{
		{name: "plain", endpoint: "api/v2/event/", want: "api/v2/event/"},
		{name: "leading slash and no trailing", endpoint: "/api/v2/appeal", want: "api/v2/appeal/"},
		{name: "filters", endpoint: "api/v2/event/", query: url.Values{"countries__in": {"1,2"}, "ordering": {"-name"}}, want: "api/v2/event/"},
		{name: "traversal", endpoint: "api/v2/../admin/", wantErr: true},
		{name: "absolute url", endpoint: "https://evil.example/api/v2/event/", wantErr: true},
		{name: "negative offset", endpoint: "api/v2/event/", query: url.Values{"offset": {"-1"}}, wantErr: true},
		{name: "limit too large", endpoint: "api/v2/event/", query: url.Values{"limit": {"10000"}}, wantErr: true},
		{name: "bad param name", endpoint: "api/v2/event/", query: url.Values{"Name;drop": {"x"}}, wantErr: true},
		{name: "bad ordering", endpoint: "api/v2/event/", query: url.Values{"ordering": {"--name"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateListReq(tt.endpoint, tt.query)
			if tt.wantErr {
				var ue *provider.UpstreamError
				require.True(t, errors.As(err, &ue))
				assert.Equal(t, provider.ErrInvalidRequest, ue.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
