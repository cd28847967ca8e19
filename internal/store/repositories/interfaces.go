package repositories

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"godash/internal/domain/shared"
)

// PageSource fetches one page of a list endpoint. Implementations: the upstream
// API client, the Redis cache decorator and the Postgres mirror.
type PageSource interface {
	FetchPage(ctx context.Context, endpoint string, query url.Values) (*shared.RawPage, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, endpoint string, query url.Values) (*shared.RawPage, error)

func (f PageSourceFunc) FetchPage(ctx context.Context, endpoint string, query url.Values) (*shared.RawPage, error) {
	return f(ctx, endpoint, query)
}

// Record is one upstream result kept verbatim by the mirror.
type Record struct {
	ID   int64
	Body json.RawMessage
}

// MirrorRepository stores upstream records for offline listing. Every record
// written by one sync run carries that run's syncedAt stamp.
type MirrorRepository interface {
	PageSource
	UpsertRecords(ctx context.Context, endpoint string, syncedAt time.Time, records []Record) (int, error)
	// PruneBefore deletes records of endpoint last written before syncedAt.
	PruneBefore(ctx context.Context, endpoint string, syncedAt time.Time) (int, error)
	MarkSynced(ctx context.Context, endpoint string, count int) error
}
