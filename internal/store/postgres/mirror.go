package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"godash/internal/domain/shared"
	"godash/internal/store/repositories"

	"github.com/jackc/pgx/v5"
)

var _ repositories.MirrorRepository = (*Repo)(nil)

// ErrNotSynced is returned when an endpoint has never been mirrored.
var ErrNotSynced = errors.New("endpoint not mirrored")

// Params that shape the page rather than filter it.
var reservedParams = map[string]bool{"limit": true, "offset": true, "ordering": true, "format": true}

// Lookup suffixes understood by the mirror, mirroring the upstream filter syntax.
const (
	lookupExact     = ""
	lookupIn        = "in"
	lookupGTE       = "gte"
	lookupGT        = "gt"
	lookupLTE       = "lte"
	lookupLT        = "lt"
	lookupIContains = "icontains"
)

var comparisons = map[string]string{lookupGTE: ">=", lookupGT: ">", lookupLTE: "<=", lookupLT: "<"}

// pageSQL holds the statements for one mirrored page.
type pageSQL struct {
	Count    string
	Select   string
	Args     []any // shared by both statements
	PageArgs []any // Args plus ordering, limit and offset
}

func normalizeEndpoint(endpoint string) string { return strings.Trim(endpoint, "/") }

// splitLookup turns "countries__in" into path [countries] and lookup "in".
func splitLookup(param string) ([]string, string) {
	parts := strings.Split(param, "__")
	lookup := lookupExact
	if n := len(parts); n > 1 {
		switch last := parts[n-1]; last {
		case lookupIn, lookupGTE, lookupGT, lookupLTE, lookupLT, lookupIContains:
			lookup = last
			parts = parts[:n-1]
		}
	}
	return parts, lookup
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func splitList(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(query url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

// buildPageSQL translates list query params into parameterised SQL over the
// mirrored JSON bodies. Keys and values are always bound, never interpolated.
func buildPageSQL(endpoint string, query url.Values) (pageSQL, error) {
	args := []any{normalizeEndpoint(endpoint)}
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	where := []string{"endpoint = $1"}
	keys := make([]string, 0, len(query))
	for k := range query {
		if !reservedParams[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		value := strings.TrimSpace(query.Get(k))
		if value == "" {
			continue
		}
		path, lookup := splitLookup(k)
		p := bind(path)
		switch lookup {
		case lookupIn:
			v := bind(splitList(value))
			where = append(where, fmt.Sprintf(
				"(body #>> %[1]s::text[] = ANY(%[2]s::text[]) OR EXISTS (SELECT 1 FROM jsonb_array_elements("+
					"CASE WHEN jsonb_typeof(body #> %[1]s::text[]) = 'array' THEN body #> %[1]s::text[] ELSE '[]'::jsonb END) e "+
					"WHERE e #>> '{}' = ANY(%[2]s::text[]) OR e->>'id' = ANY(%[2]s::text[])))", p, v))
		case lookupIContains:
			v := bind(escapeLike(value))
			where = append(where, fmt.Sprintf("body #>> %s::text[] ILIKE '%%' || %s || '%%'", p, v))
		case lookupExact:
			v := bind(value)
			where = append(where, fmt.Sprintf(
				"(body #>> %[1]s::text[] = %[2]s OR body #>> (%[1]s::text[] || ARRAY['id']) = %[2]s)", p, v))
		default:
			v := bind(value)
			where = append(where, fmt.Sprintf("body #>> %s::text[] %s %s", p, comparisons[lookup], v))
		}
	}

	limit, err := intParam(query, "limit", 0)
	if err != nil {
		return pageSQL{}, err
	}
	offset, err := intParam(query, "offset", 0)
	if err != nil {
		return pageSQL{}, err
	}

	cond := strings.Join(where, " AND ")
	out := pageSQL{
		Count: "SELECT count(*) FROM mirror_records WHERE " + cond,
		Args:  append([]any(nil), args...),
	}

	order := "id"
	if ordering := strings.TrimSpace(query.Get("ordering")); ordering != "" {
		dir := "ASC"
		if strings.HasPrefix(ordering, "-") {
			dir = "DESC"
			ordering = strings.TrimPrefix(ordering, "-")
		}
		if ordering != "" {
			p := bind(strings.Split(ordering, "__"))
			order = fmt.Sprintf(
				"CASE WHEN jsonb_typeof(body #> %[1]s::text[]) = 'number' THEN (body #>> %[1]s::text[])::numeric END %[2]s NULLS LAST, "+
					"body #>> %[1]s::text[] %[2]s NULLS LAST, id", p, dir)
		}
	}

	var limitSQL string
	if limit > 0 {
		limitSQL = " LIMIT " + bind(limit)
	}
	offsetSQL := " OFFSET " + bind(offset)
	out.Select = "SELECT body FROM mirror_records WHERE " + cond + " ORDER BY " + order + limitSQL + offsetSQL
	out.PageArgs = args
	return out, nil
}

// FetchPage serves a list page from the mirrored records.
func (r *Repo) FetchPage(ctx context.Context, endpoint string, query url.Values) (*shared.RawPage, error) {
	var synced bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM mirror_syncs WHERE endpoint = $1)`, normalizeEndpoint(endpoint),
	).Scan(&synced); err != nil {
		return nil, err
	}
	if !synced {
		return nil, fmt.Errorf("%w: %s", ErrNotSynced, endpoint)
	}

	q, err := buildPageSQL(endpoint, query)
	if err != nil {
		return nil, err
	}

	page := &shared.RawPage{Results: []json.RawMessage{}}
	if err := r.db.QueryRow(ctx, q.Count, q.Args...).Scan(&page.Count); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, q.Select, q.PageArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		page.Results = append(page.Results, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return page, nil
}

// UpsertRecords stores records in one transaction and returns how many were written.
func (r *Repo) UpsertRecords(ctx context.Context, endpoint string, syncedAt time.Time, records []repositories.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	ep := normalizeEndpoint(endpoint)
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO mirror_records (endpoint, id, body, synced_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (endpoint, id) DO UPDATE SET body = EXCLUDED.body, synced_at = EXCLUDED.synced_at`,
			ep, rec.ID, []byte(rec.Body), syncedAt)
	}

	written := 0
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for range records {
			ct, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert %s: %w", ep, err)
			}
			written += int(ct.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// PruneBefore drops the endpoint's records that the sync stamped syncedAt did
// not write again.
func (r *Repo) PruneBefore(ctx context.Context, endpoint string, syncedAt time.Time) (int, error) {
	ct, err := r.db.Exec(ctx,
		`DELETE FROM mirror_records WHERE endpoint = $1 AND synced_at < $2`,
		normalizeEndpoint(endpoint), syncedAt)
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", normalizeEndpoint(endpoint), err)
	}
	return int(ct.RowsAffected()), nil
}

// MarkSynced records a completed sync of the endpoint.
func (r *Repo) MarkSynced(ctx context.Context, endpoint string, count int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO mirror_syncs (endpoint, record_count, synced_at)
		VALUES ($1, $2, now())
		ON CONFLICT (endpoint) DO UPDATE SET record_count = EXCLUDED.record_count, synced_at = now()`,
		normalizeEndpoint(endpoint), count)
	return err
}
