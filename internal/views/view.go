// Package views declares the dashboard's list views: their upstream endpoint, filter
// keys, sortable columns and default filters, and opens list state sessions on them.
package views

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"godash/internal/listview"
)

var (
	// ErrUnknownView is returned when a view name is not registered.
	ErrUnknownView = errors.New("unknown view")
	// ErrValidation wraps every rejected sort field, filter key or filter value.
	ErrValidation = errors.New("validation failed")
)

// Kind is the value type of a filter key.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindIDList Kind = "id_list"
	KindDate   Kind = "date"
	KindBool   Kind = "bool"
)

// FilterSpec declares one filter key of a view.
type FilterSpec[K ~string] struct {
	Key K
	// Param is the upstream query parameter; empty means the key itself.
	Param string
	Kind  Kind
}

// Definition is a list view over filter keys K.
type Definition[K ~string] struct {
	Slug       string
	Title      string
	Path       string
	PageSize   int
	SortFields []string
	Filters    []FilterSpec[K]
	// Defaults computes the default filter for a view mounted at now.
	Defaults func(now time.Time) map[K]any
}

// View is the type-erased form of a Definition.
type View interface {
	Name() string
	Endpoint() string
	Describe(now time.Time) Descriptor
	Open(now time.Time) Session
}

// Session is one mounted instance of a view. Keys and values arrive untyped and are
// validated against the view before reaching the list controller.
type Session interface {
	View() string
	Endpoint() string
	SetPage(n int)
	SetSortField(field string) error
	SetFilterField(key string, value any) error
	SetFilter(filter map[string]any) error
	ResetFilter()
	Query() listview.Query
	State() State
	Meta(itemsCount int) listview.Meta
}

// State is a controller snapshot with string filter keys.
type State = listview.State[string]

// Descriptor describes a view to clients.
type Descriptor struct {
	Name       string         `json:"name"`
	Title      string         `json:"title"`
	Endpoint   string         `json:"endpoint"`
	PageSize   int            `json:"page_size"`
	SortFields []string       `json:"sort_fields"`
	Filters    []FilterInfo   `json:"filters"`
	Defaults   map[string]any `json:"defaults,omitempty"`
}

// FilterInfo describes one filter key.
type FilterInfo struct {
	Key   string `json:"key"`
	Param string `json:"param"`
	Kind  Kind   `json:"kind"`
}

func (d *Definition[K]) Name() string     { return d.Slug }
func (d *Definition[K]) Endpoint() string { return d.Path }

// Describe returns the client-facing description of the view.
func (d *Definition[K]) Describe(now time.Time) Descriptor {
	desc := Descriptor{
		Name:       d.Slug,
		Title:      d.Title,
		Endpoint:   d.Path,
		PageSize:   d.PageSize,
		SortFields: slices.Clone(d.SortFields),
		Filters:    make([]FilterInfo, 0, len(d.Filters)),
	}
	for _, f := range d.Filters {
		desc.Filters = append(desc.Filters, FilterInfo{Key: string(f.Key), Param: f.param(), Kind: f.Kind})
	}
	if defaults := d.defaults(now); len(defaults) > 0 {
		desc.Defaults = make(map[string]any, len(defaults))
		for k, v := range defaults {
			desc.Defaults[string(k)] = listview.FormatValue(v)
		}
	}
	return desc
}

// Open mounts the view at now and returns its list state.
func (d *Definition[K]) Open(now time.Time) Session {
	params := make(map[K]string, len(d.Filters))
	for _, f := range d.Filters {
		params[f.Key] = f.param()
	}
	return &session[K]{
		def: d,
		ctl: listview.New(listview.Config[K]{
			PageSize:      d.PageSize,
			DefaultFilter: d.defaults(now),
			ParamNames:    params,
		}),
	}
}

func (d *Definition[K]) defaults(now time.Time) map[K]any {
	if d.Defaults == nil {
		return nil
	}
	return d.Defaults(now)
}

func (d *Definition[K]) spec(key string) (FilterSpec[K], bool) {
	for _, f := range d.Filters {
		if string(f.Key) == key {
			return f, true
		}
	}
	return FilterSpec[K]{}, false
}

func (f FilterSpec[K]) param() string {
	if f.Param != "" {
		return f.Param
	}
	return string(f.Key)
}

type session[K ~string] struct {
	def *Definition[K]
	ctl *listview.Controller[K]
}

func (s *session[K]) View() string     { return s.def.Slug }
func (s *session[K]) Endpoint() string { return s.def.Path }

func (s *session[K]) SetPage(n int) { s.ctl.SetPage(n) }

func (s *session[K]) SetSortField(field string) error {
	if field != "" && !slices.Contains(s.def.SortFields, field) {
		return fmt.Errorf("%w: %s cannot be sorted by %q", ErrValidation, s.def.Slug, field)
	}
	s.ctl.SetSortField(field)
	return nil
}

func (s *session[K]) SetFilterField(key string, value any) error {
	spec, ok := s.def.spec(key)
	if !ok {
		return fmt.Errorf("%w: %s has no filter %q", ErrValidation, s.def.Slug, key)
	}
	v, err := Coerce(spec.Kind, value)
	if err != nil {
		return fmt.Errorf("%w: filter %q: %v", ErrValidation, key, err)
	}
	s.ctl.SetFilterField(spec.Key, v)
	return nil
}

// SetFilter validates every entry before replacing, so a rejected filter leaves
// the state untouched.
func (s *session[K]) SetFilter(filter map[string]any) error {
	next := make(map[K]any, len(filter))
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		spec, ok := s.def.spec(key)
		if !ok {
			return fmt.Errorf("%w: %s has no filter %q", ErrValidation, s.def.Slug, key)
		}
		v, err := Coerce(spec.Kind, filter[key])
		if err != nil {
			return fmt.Errorf("%w: filter %q: %v", ErrValidation, key, err)
		}
		next[spec.Key] = v
	}
	s.ctl.SetFilter(next)
	return nil
}

func (s *session[K]) ResetFilter() { s.ctl.ResetFilter() }

func (s *session[K]) Query() listview.Query { return s.ctl.QueryParams() }

func (s *session[K]) Meta(itemsCount int) listview.Meta { return s.ctl.Meta(itemsCount) }

func (s *session[K]) State() State {
	snap := s.ctl.Snapshot()
	filter := make(map[string]any, len(snap.Filter))
	for k, v := range snap.Filter {
		filter[string(k)] = v
	}
	return State{
		Page:          snap.Page,
		PageSize:      snap.PageSize,
		Offset:        snap.Offset,
		SortField:     snap.SortField,
		SortDirection: snap.SortDirection,
		Filter:        filter,
		Filtered:      snap.Filtered,
	}
}

// Registry holds views by name.
type Registry struct {
	views map[string]View
	order []string
}

// NewRegistry registers the given views in order.
func NewRegistry(views ...View) *Registry {
	r := &Registry{views: make(map[string]View, len(views))}
	for _, v := range views {
		r.Register(v)
	}
	return r
}

// Register adds or replaces a view.
func (r *Registry) Register(v View) {
	if _, exists := r.views[v.Name()]; !exists {
		r.order = append(r.order, v.Name())
	}
	r.views[v.Name()] = v
}

// Get looks a view up by name.
func (r *Registry) Get(name string) (View, error) {
	v, ok := r.views[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return v, nil
}

// All returns the views in registration order.
func (r *Registry) All() []View {
	out := make([]View, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.views[name])
	}
	return out
}
