package provider

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"godash/internal/domain/shared"
	"godash/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Registry holds the page sources in priority order. The first registered source
// is primary; later ones are fallbacks used when everything before them fails.
type Registry struct {
	order   []SourceType
	sources map[SourceType]repositories.PageSource
	mu      sync.RWMutex
}

// NewRegistry creates an empty source registry
func NewRegistry() *Registry {
	return &Registry{sources: make(map[SourceType]repositories.PageSource)}
}

// RegisterSource appends a source, or replaces it in place when already registered.
func (r *Registry) RegisterSource(t SourceType, src repositories.PageSource) {
	if src == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sources[t]; !ok {
		r.order = append(r.order, t)
	}
	r.sources[t] = src
	log.Info().
		Str("source", string(t)).
		Int("priority", len(r.order)).
		Msg("registered page source")
}

// ListSources returns the registered source types in priority order
func (r *Registry) ListSources() []SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]SourceType(nil), r.order...)
}

// Result is a fetched page and the source that served it.
type Result struct {
	Page   *shared.RawPage
	Source SourceType
	// Stale is set when a fallback source answered.
	Stale bool
}

// Fetch tries the sources in priority order and returns the first page obtained.
// Context cancellation stops the chain.
func (r *Registry) Fetch(ctx context.Context, endpoint string, query url.Values) (*Result, error) {
	r.mu.RLock()
	order := append([]SourceType(nil), r.order...)
	sources := make([]repositories.PageSource, len(order))
	for i, t := range order {
		sources[i] = r.sources[t]
	}
	r.mu.RUnlock()

	if len(order) == 0 {
		return nil, &UpstreamError{Code: ErrNoSource, Message: "no page source registered"}
	}

	var errs []error
	for i, src := range sources {
		page, err := src.FetchPage(ctx, endpoint, query)
		if err == nil {
			if i > 0 {
				log.Warn().
					Str("endpoint", endpoint).
					Str("source", string(order[i])).
					Msg("served page from fallback source")
			}
			return &Result{Page: page, Source: order[i], Stale: i > 0}, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		if !isFallbackWorthy(err) {
			break
		}
		log.Error().
			Err(err).
			Str("endpoint", endpoint).
			Str("source", string(order[i])).
			Msg("page source failed")
	}
	return nil, errors.Join(errs...)
}

// FetchPage makes the registry itself a PageSource.
func (r *Registry) FetchPage(ctx context.Context, endpoint string, query url.Values) (*shared.RawPage, error) {
	res, err := r.Fetch(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	return res.Page, nil
}

// Client errors (bad filters, missing auth) would fail the same way on every source.
func isFallbackWorthy(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch ue.Code {
		case ErrUnauthorized, ErrNotFound, ErrInvalidRequest:
			return false
		case ErrBadStatus:
			return ue.StatusCode >= 500 || ue.StatusCode == 429
		}
	}
	return true
}
