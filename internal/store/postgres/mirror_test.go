package postgres

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLookup(t *testing.T) {
	tests := []struct {
		param  string
		path   []string
		lookup string
	}{
		{"dtype", []string{"dtype"}, lookupExact},
		{"countries__in", []string{"countries"}, lookupIn},
		{"disaster_start_date__gte", []string{"disaster_start_date"}, lookupGTE},
		{"end_date__gt", []string{"end_date"}, lookupGT},
		{"name__icontains", []string{"name"}, lookupIContains},
		{"dtype__name", []string{"dtype", "name"}, lookupExact},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			path, lookup := splitLookup(tt.param)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.lookup, lookup)
		})
	}
}

func TestBuildPageSQL_PaginationOnly(t *testing.T) {
	q, err := buildPageSQL("/api/v2/event/", url.Values{"limit": {"10"}, "offset": {"20"}})
	require.NoError(t, err)

	assert.Equal(t, "SELECT count(*) FROM mirror_records WHERE endpoint = $1", q.Count)
	assert.Equal(t, []any{"api/v2/event"}, q.Args)
	assert.Equal(t, "SELECT body FROM mirror_records WHERE endpoint = $1 ORDER BY id LIMIT $2 OFFSET $3", q.Select)
	assert.Equal(t, []any{"api/v2/event", 10, 20}, q.PageArgs)
}

func TestBuildPageSQL_FiltersAreBound(t *testing.T) {
	q, err := buildPageSQL("api/v2/event/", url.Values{
		"limit":                    {"5"},
		"offset":                   {"0"},
		"ordering":                 {"-disaster_start_date"},
		"dtype":                    {"4"},
		"countries__in":            {"12, 47"},
		"disaster_start_date__gte": {"2024-02-14"},
		"name__icontains":          {"50%_flood"},
		"empty":                    {""},
	})
	require.NoError(t, err)

	// keys are applied in sorted order: countries__in, disaster_start_date__gte, dtype, name__icontains
	require.Len(t, q.Args, 9)
	assert.Equal(t, []string{"countries"}, q.Args[1])
	assert.Equal(t, []string{"12", "47"}, q.Args[2])
	assert.Equal(t, []string{"disaster_start_date"}, q.Args[3])
	assert.Equal(t, "2024-02-14", q.Args[4])
	assert.Equal(t, []string{"dtype"}, q.Args[5])
	assert.Equal(t, "4", q.Args[6])
	assert.Equal(t, []string{"name"}, q.Args[7])
	assert.Equal(t, `50\%\_flood`, q.Args[8])

	assert.Contains(t, q.Count, "body #>> $3::text[] >= $4")
	assert.Contains(t, q.Count, "ILIKE '%' || $8 || '%'")
	assert.Contains(t, q.Count, "ANY($2::text[])")
	assert.NotContains(t, q.Count, "ORDER BY")
	assert.NotContains(t, q.Count, "$10")

	require.Len(t, q.PageArgs, 12)
	assert.Equal(t, []string{"disaster_start_date"}, q.PageArgs[9])
	assert.Equal(t, 5, q.PageArgs[10])
	assert.Equal(t, 0, q.PageArgs[11])
	assert.Contains(t, q.Select, "(body #>> $10::text[])::numeric END DESC NULLS LAST")
	assert.True(t, strings.HasSuffix(q.Select, "LIMIT $11 OFFSET $12"))
}

func TestBuildPageSQL_AscendingOrdering(t *testing.T) {
	q, err := buildPageSQL("api/v2/appeal/", url.Values{"ordering": {"end_date"}})
	require.NoError(t, err)
	assert.Contains(t, q.Select, "END ASC NULLS LAST")
	assert.Equal(t, []any{"api/v2/appeal", []string{"end_date"}, 0}, q.PageArgs)
	assert.True(t, strings.HasSuffix(q.Select, "OFFSET $3"))
}

func TestBuildPageSQL_InvalidPaging(t *testing.T) {
	_, err := buildPageSQL("api/v2/event/", url.Values{"limit": {"ten"}})
	assert.Error(t, err)
	_, err = buildPageSQL("api/v2/event/", url.Values{"offset": {"-1"}})
	assert.Error(t, err)
}
