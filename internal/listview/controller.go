// Package listview holds the page, sort and filter state of a single list view and
// derives the query parameters sent to a paged list endpoint.
//
// A Controller is created when a view mounts and discarded when it unmounts. It does
// no I/O: callers read QueryParams after each mutation and fetch on their own. The
// controller is not safe for concurrent use.
package listview

import (
	"maps"
	"math"
)

// Pagination defaults.
const (
	DefaultPageSize = 10
	FirstPage       = 1
	// FetchAllPageSize is used by views that load the whole collection at once.
	FetchAllPageSize = 9999
)

// SortDirection is the direction of the active sort column.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Config declares a list view instance. K is the view's filter key enumeration.
type Config[K ~string] struct {
	// PageSize is fixed for the lifetime of the controller.
	PageSize int
	// DefaultFilter is the unfiltered state of the view. Relative dates must be
	// resolved by the caller before building the config.
	DefaultFilter map[K]any
	// ParamNames renames filter keys in the query. Keys without an entry are
	// sent under their own name.
	ParamNames map[K]string
}

// Controller owns the list state of one mounted view.
type Controller[K ~string] struct {
	pageSize   int
	defaults   map[K]any
	paramNames map[K]string

	page      int
	sortField string
	direction SortDirection
	filter    map[K]any
}

// New creates a controller on page 1, unsorted, with the declared default filter.
func New[K ~string](cfg Config[K]) *Controller[K] {
	pageSize := cfg.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	defaults := make(map[K]any, len(cfg.DefaultFilter))
	for k, v := range cfg.DefaultFilter {
		if !IsEmpty(v) {
			defaults[k] = v
		}
	}

	return &Controller[K]{
		pageSize:   pageSize,
		defaults:   defaults,
		paramNames: maps.Clone(cfg.ParamNames),
		page:       FirstPage,
		direction:  Ascending,
		filter:     maps.Clone(defaults),
	}
}

// Page returns the current 1-based page.
func (c *Controller[K]) Page() int { return c.page }

// PageSize returns the fixed page size.
func (c *Controller[K]) PageSize() int { return c.pageSize }

// Offset is always derived from page and page size.
func (c *Controller[K]) Offset() int { return c.pageSize * (c.page - 1) }

// Sort returns the active sort field ("" when unsorted) and its direction.
func (c *Controller[K]) Sort() (string, SortDirection) {
	return c.sortField, c.direction
}

// Filter returns a copy of the current filter.
func (c *Controller[K]) Filter() map[K]any { return maps.Clone(c.filter) }

// Defaults returns a copy of the declared default filter.
func (c *Controller[K]) Defaults() map[K]any { return maps.Clone(c.defaults) }

// SetPage moves to page n. Pages below 1 are clamped to 1; pages past the end are
// kept and yield an empty result upstream, up to the last page whose offset fits
// in an int.
func (c *Controller[K]) SetPage(n int) {
	c.page = min(max(FirstPage, n), c.maxPage())
}

func (c *Controller[K]) maxPage() int { return math.MaxInt / c.pageSize }

// SetSortField selects the sort column. Selecting the active column flips the
// direction, a new column starts ascending, and "" clears the sort. Any change
// resets the page to 1.
func (c *Controller[K]) SetSortField(field string) {
	switch {
	case field == "":
		c.sortField = ""
		c.direction = Ascending
	case field == c.sortField:
		c.direction = c.direction.flip()
	default:
		c.sortField = field
		c.direction = Ascending
	}
	c.page = FirstPage
}

// SetFilterField merges one filter value. Empty values clear the key. The page
// resets to 1.
func (c *Controller[K]) SetFilterField(key K, value any) {
	if IsEmpty(value) {
		delete(c.filter, key)
	} else {
		c.filter[key] = value
	}
	c.page = FirstPage
}

// SetFilter replaces the whole filter; a nil or empty map clears every key. The
// page resets to 1.
func (c *Controller[K]) SetFilter(filter map[K]any) {
	next := make(map[K]any, len(filter))
	for k, v := range filter {
		if !IsEmpty(v) {
			next[k] = v
		}
	}
	c.filter = next
	c.page = FirstPage
}

// ResetFilter restores the declared default filter.
func (c *Controller[K]) ResetFilter() {
	c.SetFilter(c.defaults)
}

// Ordering renders the sort state as an ordering parameter: "" when unsorted,
// "field" ascending and "-field" descending.
func (c *Controller[K]) Ordering() string {
	if c.sortField == "" {
		return ""
	}
	if c.direction == Descending {
		return "-" + c.sortField
	}
	return c.sortField
}

// QueryParams derives the list query from the current state. It has no side
// effects and returns a fresh value on every call.
func (c *Controller[K]) QueryParams() Query {
	q := Query{
		Limit:    c.pageSize,
		Offset:   c.Offset(),
		Ordering: c.Ordering(),
		Filters:  make(map[string]string, len(c.filter)),
	}
	for k, v := range c.filter {
		name := string(k)
		if alias, ok := c.paramNames[k]; ok && alias != "" {
			name = alias
		}
		q.Filters[name] = FormatValue(v)
	}
	return q
}

// IsFiltered reports whether any filter key holds a value different from the
// declared default.
func (c *Controller[K]) IsFiltered() bool {
	for k, v := range c.filter {
		def, ok := c.defaults[k]
		if !ok || !Equal(v, def) {
			return true
		}
	}
	for k := range c.defaults {
		if _, ok := c.filter[k]; !ok {
			return true
		}
	}
	return false
}

// PageCount returns the number of pages needed for itemsCount results.
func (c *Controller[K]) PageCount(itemsCount int) int {
	if itemsCount <= 0 {
		return 0
	}
	return (itemsCount + c.pageSize - 1) / c.pageSize
}

// Meta builds pager metadata for an externally supplied result count.
func (c *Controller[K]) Meta(itemsCount int) Meta {
	return NewMeta(c.page, c.pageSize, itemsCount)
}

// Snapshot captures the full state for rendering.
func (c *Controller[K]) Snapshot() State[K] {
	return State[K]{
		Page:          c.page,
		PageSize:      c.pageSize,
		Offset:        c.Offset(),
		SortField:     c.sortField,
		SortDirection: c.direction,
		Filter:        c.Filter(),
		Filtered:      c.IsFiltered(),
	}
}

func (d SortDirection) flip() SortDirection {
	if d == Descending {
		return Ascending
	}
	return Descending
}
