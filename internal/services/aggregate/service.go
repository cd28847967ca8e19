package aggregate

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"godash/internal/domain/appeal"
	"godash/internal/domain/emergency"
	"godash/internal/domain/project"
	"godash/internal/domain/shared"
	"godash/internal/listview"
	"godash/internal/store/repositories"
	"godash/internal/views"

	"github.com/rs/zerolog/log"
)

// Service loads whole lists through the view definitions and aggregates them.
type Service struct {
	views  *views.Registry
	source repositories.PageSource
	now    atomic.Pointer[func() time.Time]
}

// NewService creates the chart service.
func NewService(reg *views.Registry, source repositories.PageSource) *Service {
	s := &Service{views: reg, source: source}
	s.SetClock(time.Now)
	return s
}

// SetClock replaces the time source used for view defaults. Safe for concurrent use.
func (s *Service) SetClock(now func() time.Time) { s.now.Store(&now) }

func (s *Service) clock() time.Time { return (*s.now.Load())() }

// EmergencyChart is the emergencies-by-type chart.
type EmergencyChart struct {
	Total  int         `json:"total"`
	Types  []TypeCount `json:"types"`
	Shares []Point     `json:"shares"`
}

// ProjectChart is the projects-by-sector chart.
type ProjectChart struct {
	Total int `json:"total"`
	ProjectBreakdown
	Shares []Point `json:"shares"`
}

// EmergenciesByType aggregates the emergencies view under filter, or its
// defaults when filter is nil.
func (s *Service) EmergenciesByType(ctx context.Context, filter map[string]any) (*EmergencyChart, error) {
	items, err := fetchAll[emergency.Emergency](ctx, s, views.Emergencies, filter)
	if err != nil {
		return nil, &ServiceError{Op: "emergencies_by_type", Err: err}
	}
	types := EmergenciesByType(items)
	return &EmergencyChart{Total: len(items), Types: types, Shares: Normalize(CountSeries(types))}, nil
}

// AppealFunding aggregates funding over the appeals view.
func (s *Service) AppealFunding(ctx context.Context, filter map[string]any) (*AppealFunding, error) {
	items, err := fetchAll[appeal.Appeal](ctx, s, views.Appeals, filter)
	if err != nil {
		return nil, &ServiceError{Op: "appeal_funding", Err: err}
	}
	out := FundingOf(items)
	return &out, nil
}

// ProjectsBySector aggregates the 3W projects view.
func (s *Service) ProjectsBySector(ctx context.Context, filter map[string]any) (*ProjectChart, error) {
	items, err := fetchAll[project.Project](ctx, s, views.Projects, filter)
	if err != nil {
		return nil, &ServiceError{Op: "projects_by_sector", Err: err}
	}
	breakdown := ProjectsBySector(items)
	return &ProjectChart{
		Total:            len(items),
		ProjectBreakdown: breakdown,
		Shares:           Normalize(BudgetSeries(breakdown.BySector)),
	}, nil
}

// fetchAll requests a single oversized page of the view's query.
func fetchAll[T any](ctx context.Context, s *Service, viewName string, filter map[string]any) ([]T, error) {
	v, err := s.views.Get(viewName)
	if err != nil {
		return nil, err
	}
	sess := v.Open(s.clock())
	if filter != nil {
		if err := sess.SetFilter(filter); err != nil {
			return nil, err
		}
	}

	values := sess.Query().Values()
	values.Set(listview.ParamLimit, strconv.Itoa(listview.FetchAllPageSize))
	values.Set(listview.ParamOffset, "0")

	raw, err := s.source.FetchPage(ctx, v.Endpoint(), values)
	if err != nil {
		return nil, err
	}
	if raw.HasNext() {
		log.Warn().
			Str("view", viewName).
			Int("count", raw.Count).
			Int("fetched", len(raw.Results)).
			Msg("chart data truncated to one page")
	}
	page, err := shared.Decode[T](raw)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// ServiceError represents a chart service error
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return "aggregate service " + e.Op + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
