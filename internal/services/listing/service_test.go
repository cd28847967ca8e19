package listing

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"godash/internal/domain/shared"
	"godash/internal/listview"
	"godash/internal/provider"
	"godash/internal/store/repositories"
	"godash/internal/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

type recordingSource struct {
	mu      sync.Mutex
	queries []url.Values
	count   int
	err     error
}

func (s *recordingSource) FetchPage(ctx context.Context, endpoint string, query url.Values) (*shared.RawPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return &shared.RawPage{
		Count:   s.count,
		Results: []json.RawMessage{json.RawMessage(`{"id":1}`), json.RawMessage(`{"id":2}`)},
	}, nil
}

func (s *recordingSource) last() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}

func newTestService(t *testing.T, sources ...repositories.PageSource) *Service {
	t.Helper()
	reg := provider.NewRegistry()
	types := []provider.SourceType{provider.SourceGoAPI, provider.SourceMirror}
	for i, src := range sources {
		reg.RegisterSource(types[i], src)
	}
	svc := NewService(views.DefaultRegistry(), reg, 30*time.Minute)
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func TestOpen_AppliesViewDefaults(t *testing.T) {
	svc := newTestService(t, &recordingSource{})

	snap, err := svc.Open(views.Emergencies)
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, views.Emergencies, snap.View)
	assert.Equal(t, 1, snap.State.Page)
	assert.Equal(t, 10, snap.State.PageSize)
	assert.False(t, snap.State.Filtered)
	assert.Equal(t, map[string]string{"disaster_start_date__gte": "2024-02-14"}, snap.Query.Filters)
	assert.Equal(t, 1, svc.Len())
}

func TestOpen_UnknownView(t *testing.T) {
	svc := newTestService(t, &recordingSource{})

	_, err := svc.Open("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, views.ErrUnknownView))

	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "open", se.Op)
}

func TestMutations(t *testing.T) {
	svc := newTestService(t, &recordingSource{})
	snap, err := svc.Open(views.Appeals)
	require.NoError(t, err)
	id := snap.ID

	snap, err = svc.SetPage(id, 3)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Query.Offset)

	snap, err = svc.SetSort(id, "end_date")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.State.Page)
	assert.Equal(t, "end_date", snap.Query.Ordering)

	snap, err = svc.SetSort(id, "end_date")
	require.NoError(t, err)
	assert.Equal(t, "-end_date", snap.Query.Ordering)

	_, err = svc.SetPage(id, 2)
	require.NoError(t, err)
	snap, err = svc.SetFilterField(id, "dtype", float64(4))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.State.Page)
	assert.True(t, snap.State.Filtered)
	assert.Equal(t, "4", snap.Query.Filters["dtype"])

	snap, err = svc.ResetFilter(id)
	require.NoError(t, err)
	assert.False(t, snap.State.Filtered)

	snap, err = svc.SetFilter(id, map[string]any{})
	require.NoError(t, err)
	assert.True(t, snap.State.Filtered, "clearing a defaulted key counts as filtered")
	assert.Empty(t, snap.Query.Filters)
}

func TestMutations_ValidationLeavesStateUntouched(t *testing.T) {
	svc := newTestService(t, &recordingSource{})
	snap, err := svc.Open(views.Projects)
	require.NoError(t, err)
	_, err = svc.SetPage(snap.ID, 4)
	require.NoError(t, err)

	_, err = svc.SetSort(snap.ID, "password")
	assert.True(t, errors.Is(err, views.ErrValidation))

	_, err = svc.SetFilter(snap.ID, map[string]any{"sector": float64(2), "bogus": "x"})
	assert.True(t, errors.Is(err, views.ErrValidation))

	got, err := svc.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.State.Page)
	assert.Empty(t, got.State.Filter)
}

func TestUnknownSession(t *testing.T) {
	svc := newTestService(t, &recordingSource{})

	_, err := svc.Get("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = svc.SetPage("missing", 2)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = svc.Load(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(svc.Close("missing"), ErrSessionNotFound))
}

func TestClose(t *testing.T) {
	svc := newTestService(t, &recordingSource{})
	snap, err := svc.Open(views.Surge)
	require.NoError(t, err)

	require.NoError(t, svc.Close(snap.ID))
	assert.Equal(t, 0, svc.Len())
	_, err = svc.Get(snap.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestLoad_UsesDerivedQuery(t *testing.T) {
	src := &recordingSource{count: 25}
	svc := newTestService(t, src)
	snap, err := svc.Open(views.Emergencies)
	require.NoError(t, err)
	_, err = svc.SetSort(snap.ID, "name")
	require.NoError(t, err)
	_, err = svc.SetPage(snap.ID, 2)
	require.NoError(t, err)

	res, err := svc.Load(context.Background(), snap.ID)
	require.NoError(t, err)

	q := src.last()
	assert.Equal(t, "10", q.Get("limit"))
	assert.Equal(t, "10", q.Get("offset"))
	assert.Equal(t, "name", q.Get("ordering"))
	assert.Equal(t, "2024-02-14", q.Get("disaster_start_date__gte"))

	assert.Equal(t, listview.Meta{
		CurrentPage: 2,
		PageSize:    10,
		TotalPages:  3,
		TotalItems:  25,
		HasPrevious: true,
		HasNext:     true,
	}, res.Meta)
	assert.Len(t, res.Results, 2)
	assert.Equal(t, provider.SourceGoAPI, res.Source)
	assert.False(t, res.Stale)
}

func TestLoad_FailureDoesNotChangeState(t *testing.T) {
	src := &recordingSource{err: &provider.UpstreamError{Code: provider.ErrNotFound, Message: "gone", StatusCode: 404}}
	svc := newTestService(t, src)
	snap, err := svc.Open(views.FieldReports)
	require.NoError(t, err)
	_, err = svc.SetPage(snap.ID, 3)
	require.NoError(t, err)

	_, err = svc.Load(context.Background(), snap.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrUpstream))

	got, err := svc.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.State.Page)
}

func TestLoad_FallbackMarksStale(t *testing.T) {
	primary := &recordingSource{err: &provider.UpstreamError{Code: provider.ErrTransport, Message: "dial tcp: refused"}}
	mirror := &recordingSource{count: 2}
	svc := newTestService(t, primary, mirror)
	snap, err := svc.Open(views.Surge)
	require.NoError(t, err)

	res, err := svc.Load(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, provider.SourceMirror, res.Source)
	assert.Equal(t, "true", mirror.last().Get("is_active"))
}

func TestEvictIdle(t *testing.T) {
	svc := newTestService(t, &recordingSource{})
	old, err := svc.Open(views.Emergencies)
	require.NoError(t, err)

	later := fixedNow.Add(20 * time.Minute)
	svc.SetClock(func() time.Time { return later })
	fresh, err := svc.Open(views.Appeals)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.EvictIdle(fixedNow.Add(45*time.Minute)))
	_, err = svc.Get(old.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = svc.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestEvictIdle_ZeroTTLKeepsSessions(t *testing.T) {
	svc := NewService(views.DefaultRegistry(), provider.NewRegistry(), 0)
	_, err := svc.Open(views.Emergencies)
	require.NoError(t, err)
	assert.Equal(t, 0, svc.EvictIdle(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, svc.Len())
}

func TestRun_ClockChangedWhileSweeping(t *testing.T) {
	svc := NewService(views.DefaultRegistry(), provider.NewRegistry(), 2*time.Second)
	svc.SetClock(func() time.Time { return fixedNow })
	_, err := svc.Open(views.Surge)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	svc.SetClock(func() time.Time { return fixedNow.Add(time.Hour) })
	assert.Eventually(t, func() bool { return svc.Len() == 0 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	<-done
}

func TestConcurrentMutationsOnOneSession(t *testing.T) {
	svc := newTestService(t, &recordingSource{count: 100})
	snap, err := svc.Open(views.Projects)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = svc.SetPage(snap.ID, n)
			_, _ = svc.Load(context.Background(), snap.ID)
		}(i)
	}
	wg.Wait()

	got, err := svc.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, got.State.PageSize*(got.State.Page-1), got.State.Offset)
}
