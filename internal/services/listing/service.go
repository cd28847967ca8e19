package listing

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"godash/internal/listview"
	"godash/internal/provider"
	"godash/internal/views"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSessionNotFound is returned for unknown or evicted session ids.
var ErrSessionNotFound = errors.New("session not found")

// Fetcher loads one page, reporting which source served it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, query url.Values) (*provider.Result, error)
}

// Service keeps mounted list views and loads their pages.
type Service struct {
	views   *views.Registry
	fetcher Fetcher
	ttl     time.Duration
	now     atomic.Pointer[func() time.Time]

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	id       string
	session  views.Session
	lastUsed time.Time
}

// NewService creates a listing service. Sessions idle for longer than ttl are
// dropped by Run; a zero ttl keeps them until closed.
func NewService(reg *views.Registry, fetcher Fetcher, ttl time.Duration) *Service {
	s := &Service{
		views:    reg,
		fetcher:  fetcher,
		ttl:      ttl,
		sessions: make(map[string]*entry),
	}
	s.SetClock(time.Now)
	return s
}

// SetClock replaces the time source used for defaults and idle tracking. It may
// be called while Run is sweeping.
func (s *Service) SetClock(now func() time.Time) { s.now.Store(&now) }

func (s *Service) clock() time.Time { return (*s.now.Load())() }

// Views exposes the view registry.
func (s *Service) Views() *views.Registry { return s.views }

// Open mounts a view and returns the new session.
func (s *Service) Open(viewName string) (*Snapshot, error) {
	v, err := s.views.Get(viewName)
	if err != nil {
		return nil, &ServiceError{Op: "open", Err: err}
	}

	now := s.clock()
	e := &entry{id: uuid.NewString(), session: v.Open(now), lastUsed: now}

	s.mu.Lock()
	s.sessions[e.id] = e
	s.mu.Unlock()

	log.Debug().Str("session_id", e.id).Str("view", viewName).Msg("session opened")
	return e.snapshot(), nil
}

// Get returns the current state of a session.
func (s *Service) Get(id string) (*Snapshot, error) {
	return s.apply("get", id, func(views.Session) error { return nil })
}

// Close unmounts a session.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return &ServiceError{Op: "close", Err: ErrSessionNotFound}
	}
	delete(s.sessions, id)
	log.Debug().Str("session_id", id).Msg("session closed")
	return nil
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SetPage moves the session to page; pages below 1 clamp to 1.
func (s *Service) SetPage(id string, page int) (*Snapshot, error) {
	return s.apply("set_page", id, func(sess views.Session) error {
		sess.SetPage(page)
		return nil
	})
}

// SetSort toggles or switches the sort column; an empty field clears sorting.
func (s *Service) SetSort(id, field string) (*Snapshot, error) {
	return s.apply("set_sort", id, func(sess views.Session) error {
		return sess.SetSortField(field)
	})
}

// SetFilterField sets one filter key; an empty value removes it.
func (s *Service) SetFilterField(id, key string, value any) (*Snapshot, error) {
	return s.apply("set_filter_field", id, func(sess views.Session) error {
		return sess.SetFilterField(key, value)
	})
}

// SetFilter replaces the whole filter.
func (s *Service) SetFilter(id string, filter map[string]any) (*Snapshot, error) {
	return s.apply("set_filter", id, func(sess views.Session) error {
		return sess.SetFilter(filter)
	})
}

// ResetFilter restores the view's default filter.
func (s *Service) ResetFilter(id string) (*Snapshot, error) {
	return s.apply("reset_filter", id, func(sess views.Session) error {
		sess.ResetFilter()
		return nil
	})
}

// Load fetches the page described by the session's current query. The fetch
// runs outside the session lock; failures leave the session untouched.
func (s *Service) Load(ctx context.Context, id string) (*PageResult, error) {
	snap, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	start := s.clock()
	res, err := s.fetcher.Fetch(ctx, snap.Endpoint, snap.Query.Values())
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", id).
			Str("endpoint", snap.Endpoint).
			Str("query", snap.QueryString).
			Msg("page load failed")
		return nil, &ServiceError{Op: "load", Err: err}
	}

	results := res.Page.Results
	if results == nil {
		results = []json.RawMessage{}
	}
	log.Debug().
		Str("session_id", id).
		Str("source", string(res.Source)).
		Int("count", res.Page.Count).
		Dur("duration", s.clock().Sub(start)).
		Msg("page loaded")

	return &PageResult{
		Snapshot: *snap,
		Meta:     listview.NewMeta(snap.State.Page, snap.State.PageSize, res.Page.Count),
		Results:  results,
		Source:   res.Source,
		Stale:    res.Stale,
	}, nil
}

// EvictIdle drops sessions unused since before now minus the ttl.
func (s *Service) EvictIdle(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := e.lastUsed.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run evicts idle sessions until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	every := max(s.ttl/2, time.Second)
	log.Info().Dur("session_ttl", s.ttl).Dur("sweep_every", every).Msg("session sweeper started")

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session sweeper stopping")
			return
		case <-ticker.C:
			if n := s.EvictIdle(s.clock()); n > 0 {
				log.Info().Int("evicted", n).Int("live", s.Len()).Msg("idle sessions evicted")
			}
		}
	}
}

func (s *Service) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

// apply runs fn under the session lock and returns the resulting state.
func (s *Service) apply(op, id string, fn func(views.Session) error) (*Snapshot, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, &ServiceError{Op: op, Err: ErrSessionNotFound}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.session); err != nil {
		return nil, &ServiceError{Op: op, Err: err}
	}
	e.lastUsed = s.clock()
	return e.snapshot(), nil
}

// snapshot must be called with e.mu held or before e is shared.
func (e *entry) snapshot() *Snapshot {
	q := e.session.Query()
	return &Snapshot{
		ID:          e.id,
		View:        e.session.View(),
		Endpoint:    e.session.Endpoint(),
		State:       e.session.State(),
		Query:       q,
		QueryString: q.Encode(),
	}
}
