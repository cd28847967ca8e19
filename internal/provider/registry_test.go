package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"godash/internal/domain/shared"
	"godash/internal/store/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls int
	page  *shared.RawPage
	err   error
}

func (s *countingSource) FetchPage(ctx context.Context, endpoint string, query url.Values) (*shared.RawPage, error) {
	s.calls++
	return s.page, s.err
}

var _ repositories.PageSource = (*countingSource)(nil)

func onePage(id string) *shared.RawPage {
	return &shared.RawPage{Count: 1, Results: []json.RawMessage{json.RawMessage(`{"id":` + id + `}`)}}
}

func TestRegistry_PrimaryServes(t *testing.T) {
	primary := &countingSource{page: onePage("1")}
	mirror := &countingSource{page: onePage("2")}
	reg := NewRegistry()
	reg.RegisterSource(SourceGoAPI, primary)
	reg.RegisterSource(SourceMirror, mirror)

	res, err := reg.Fetch(context.Background(), "api/v2/event/", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceGoAPI, res.Source)
	assert.False(t, res.Stale)
	assert.Equal(t, 0, mirror.calls)
	assert.Equal(t, []SourceType{SourceGoAPI, SourceMirror}, reg.ListSources())
}

func TestRegistry_FallsBackOnServerError(t *testing.T) {
	primary := &countingSource{err: &UpstreamError{Code: ErrBadStatus, Message: "boom", StatusCode: 503}}
	mirror := &countingSource{page: onePage("2")}
	reg := NewRegistry()
	reg.RegisterSource(SourceGoAPI, primary)
	reg.RegisterSource(SourceMirror, mirror)

	res, err := reg.Fetch(context.Background(), "api/v2/event/", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceMirror, res.Source)
	assert.True(t, res.Stale)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, mirror.calls)
}

func TestRegistry_ClientErrorsDoNotFallBack(t *testing.T) {
	for _, code := range []string{ErrUnauthorized, ErrNotFound, ErrInvalidRequest} {
		t.Run(code, func(t *testing.T) {
			primary := &countingSource{err: &UpstreamError{Code: code, Message: code}}
			mirror := &countingSource{page: onePage("2")}
			reg := NewRegistry()
			reg.RegisterSource(SourceGoAPI, primary)
			reg.RegisterSource(SourceMirror, mirror)

			_, err := reg.Fetch(context.Background(), "api/v2/event/", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUpstream))
			assert.Equal(t, 0, mirror.calls)
		})
	}
}

func TestRegistry_AllSourcesFail(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSource(SourceGoAPI, &countingSource{err: errors.New("dial tcp: refused")})
	reg.RegisterSource(SourceMirror, &countingSource{err: &UpstreamError{Code: ErrTransport, Message: "not synced"}})

	_, err := reg.Fetch(context.Background(), "api/v2/event/", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial tcp: refused")
	assert.Contains(t, err.Error(), "not synced")
}

func TestRegistry_NoSources(t *testing.T) {
	_, err := NewRegistry().FetchPage(context.Background(), "api/v2/event/", nil)
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, ErrNoSource, ue.Code)
}

func TestRegistry_ReplaceKeepsPriority(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSource(SourceGoAPI, &countingSource{page: onePage("1")})
	reg.RegisterSource(SourceMirror, &countingSource{page: onePage("2")})
	replacement := &countingSource{page: onePage("3")}
	reg.RegisterSource(SourceGoAPI, replacement)
	reg.RegisterSource(SourceMirror, nil)

	assert.Equal(t, []SourceType{SourceGoAPI, SourceMirror}, reg.ListSources())
	res, err := reg.Fetch(context.Background(), "api/v2/event/", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceGoAPI, res.Source)
	assert.Equal(t, 1, replacement.calls)
}

func TestRegistry_CancelledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mirror := &countingSource{page: onePage("2")}
	reg := NewRegistry()
	reg.RegisterSource(SourceGoAPI, &countingSource{err: context.Canceled})
	reg.RegisterSource(SourceMirror, mirror)

	_, err := reg.Fetch(ctx, "api/v2/event/", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mirror.calls)
}
