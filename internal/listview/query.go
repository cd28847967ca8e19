package listview

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Query parameter names understood by paged list endpoints.
const (
	ParamLimit    = "limit"
	ParamOffset   = "offset"
	ParamOrdering = "ordering"
)

// Query is the derived request for one page of a list endpoint.
type Query struct {
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
	Ordering string            `json:"ordering,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
}

// Values renders the query as URL parameters. Filters never override the
// pagination and ordering parameters.
func (q Query) Values() url.Values {
	v := make(url.Values, len(q.Filters)+3)
	for name, value := range q.Filters {
		v.Set(name, value)
	}
	v.Set(ParamLimit, strconv.Itoa(q.Limit))
	v.Set(ParamOffset, strconv.Itoa(q.Offset))
	if q.Ordering != "" {
		v.Set(ParamOrdering, q.Ordering)
	} else {
		v.Del(ParamOrdering)
	}
	return v
}

// Encode returns the query string with keys in sorted order.
func (q Query) Encode() string { return q.Values().Encode() }

// FilterKeys returns the filter parameter names in sorted order.
func (q Query) FilterKeys() []string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Meta is pager metadata for a page of results.
type Meta struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	TotalPages  int  `json:"total_pages"`
	TotalItems  int  `json:"total_items"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
}

// NewMeta computes pager metadata for page of pageSize over itemsCount results.
func NewMeta(page, pageSize, itemsCount int) Meta {
	pageSize = max(pageSize, 1)
	total := 0
	if itemsCount > 0 {
		total = (itemsCount + pageSize - 1) / pageSize
	}
	return Meta{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  total,
		TotalItems:  max(itemsCount, 0),
		HasPrevious: page > FirstPage,
		HasNext:     page < total,
	}
}

// State is a read-only snapshot of a controller.
type State[K ~string] struct {
	Page          int           `json:"page"`
	PageSize      int           `json:"page_size"`
	Offset        int           `json:"offset"`
	SortField     string        `json:"sort_field,omitempty"`
	SortDirection SortDirection `json:"sort_direction,omitempty"`
	Filter        map[K]any     `json:"filter"`
	Filtered      bool          `json:"filtered"`
}

// IsEmpty reports whether a filter value counts as unset: nil, blank strings,
// zero times, nil pointers and empty slices or maps. Numeric zero is a value.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case time.Time:
		return x.IsZero()
	case *time.Time:
		return x == nil || x.IsZero()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil() || IsEmpty(rv.Elem().Interface())
	}
	return false
}

// Equal compares two filter values. Times compare by instant.
func Equal(a, b any) bool {
	return cmp.Equal(a, b)
}

// FormatValue renders a filter value as a query parameter value. Dates without a
// clock component render as YYYY-MM-DD and lists render comma separated.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return formatTime(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return formatTime(*x)
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Pointer:
		if rv.IsNil() {
			return ""
		}
		return FormatValue(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

func formatTime(t time.Time) string {
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.UTC().Format(time.RFC3339)
}
