package views

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"godash/internal/domain/shared"
	"godash/internal/listview"
)

// Coerce converts a filter value from JSON or the command line into the Go type
// the view declares for it. Empty values come back as nil.
func Coerce(kind Kind, v any) (any, error) {
	if listview.IsEmpty(v) {
		return nil, nil
	}
	switch kind {
	case KindString:
		return toString(v)
	case KindInt:
		return toInt(v)
	case KindIDList:
		return toIDList(v)
	case KindDate:
		return toDate(v)
	case KindBool:
		return toBool(v)
	}
	return nil, fmt.Errorf("unsupported filter kind %q", kind)
}

func toString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case float64, int, int64:
		return listview.FormatValue(x), nil
	}
	return nil, fmt.Errorf("expected text, got %T", v)
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("expected an integer, got %v", x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", x)
		}
		return n, nil
	}
	return nil, fmt.Errorf("expected an integer, got %T", v)
}

func toIDList(v any) (any, error) {
	switch x := v.(type) {
	case []int:
		return x, nil
	case string:
		var ids []int
		for _, part := range strings.Split(x, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			n, err := toInt(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, n.(int))
		}
		if len(ids) == 0 {
			return nil, nil
		}
		return ids, nil
	case []any:
		ids := make([]int, 0, len(x))
		for _, item := range x {
			n, err := toInt(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, n.(int))
		}
		return ids, nil
	case []string:
		return toIDList(strings.Join(x, ","))
	case int, int64, float64:
		n, err := toInt(x)
		if err != nil {
			return nil, err
		}
		return []int{n.(int)}, nil
	}
	return nil, fmt.Errorf("expected a list of ids, got %T", v)
}

func toDate(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return normalizeDate(x), nil
	case shared.Date:
		return normalizeDate(x.Time), nil
	case string:
		d, err := shared.ParseDate(x)
		if err != nil {
			return nil, err
		}
		return normalizeDate(d.Time), nil
	}
	return nil, fmt.Errorf("expected a date, got %T", v)
}

// normalizeDate maps a bare day onto Day and any other instant onto UTC.
func normalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return Day(t)
	}
	return t.UTC()
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("expected true or false, got %q", x)
		}
		return b, nil
	}
	return nil, fmt.Errorf("expected true or false, got %T", v)
}
