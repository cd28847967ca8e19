// Package mirrorsync copies upstream list endpoints into the local mirror.
package mirrorsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"godash/internal/config"
	"godash/internal/listview"
	"godash/internal/store/repositories"
	"godash/internal/views"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrInProgress is returned when a sync is requested while one is running.
var ErrInProgress = errors.New("sync already in progress")

// Worker periodically pages through every view's endpoint and upserts the records
// into the mirror.
type Worker struct {
	views       *views.Registry
	upstream    repositories.PageSource
	mirror      repositories.MirrorRepository
	every       time.Duration
	batchSize   int
	maxPages    int
	concurrency int

	running sync.Mutex
	// OnSynced runs after a sync that changed the mirror, e.g. to invalidate caches.
	OnSynced func(ctx context.Context) error
}

// NewWorker creates a mirror sync worker
func NewWorker(
	reg *views.Registry,
	upstream repositories.PageSource,
	mirror repositories.MirrorRepository,
	cfg config.SyncCfg,
) *Worker {
	w := &Worker{
		views:       reg,
		upstream:    upstream,
		mirror:      mirror,
		every:       cfg.Every,
		batchSize:   cfg.BatchSize,
		maxPages:    cfg.MaxPages,
		concurrency: cfg.Concurrency,
	}
	if w.every == 0 {
		w.every = 15 * time.Minute
	}
	if w.batchSize <= 0 {
		w.batchSize = 100
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	return w
}

// ViewReport is the outcome of syncing one view.
type ViewReport struct {
	View     string        `json:"view"`
	Endpoint string        `json:"endpoint"`
	Pages    int           `json:"pages"`
	Records  int           `json:"records"`
	Skipped  int           `json:"skipped"`
	Pruned   int           `json:"pruned"`
	Complete bool          `json:"complete"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Report summarises one sync run.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Views     []ViewReport  `json:"views"`
}

// Records returns the total number of records written.
func (r *Report) Records() int {
	n := 0
	for _, v := range r.Views {
		n += v.Records
	}
	return n
}

// Pruned returns the total number of records removed because they vanished upstream.
func (r *Report) Pruned() int {
	n := 0
	for _, v := range r.Views {
		n += v.Pruned
	}
	return n
}

// Run syncs once at start and then on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Info().
		Dur("sync_every", w.every).
		Int("batch_size", w.batchSize).
		Int("max_pages", w.maxPages).
		Int("concurrency", w.concurrency).
		Msg("mirror sync worker started")

	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for {
		if _, err := w.SyncOnce(ctx); err != nil && !errors.Is(err, ErrInProgress) {
			log.Error().Err(err).Msg("mirror sync failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("mirror sync worker stopping")
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce syncs every view. Views are synced concurrently and independently:
// one failing view does not stop the others, and all failures are returned joined.
func (w *Worker) SyncOnce(ctx context.Context) (*Report, error) {
	if !w.running.TryLock() {
		return nil, ErrInProgress
	}
	defer w.running.Unlock()

	all := w.views.All()
	report := &Report{StartedAt: time.Now(), Views: make([]ViewReport, len(all))}
	errs := make([]error, len(all))
	// Postgres keeps microseconds; the stamp must round-trip exactly.
	stamp := report.StartedAt.UTC().Truncate(time.Microsecond)

	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)
	for i, v := range all {
		i, v := i, v
		g.Go(func() error {
			report.Views[i], errs[i] = w.syncView(ctx, v, stamp)
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(report.StartedAt)

	log.Info().
		Int("views", len(all)).
		Int("records", report.Records()).
		Dur("duration", report.Duration).
		Msg("mirror sync finished")

	if (report.Records() > 0 || report.Pruned() > 0) && w.OnSynced != nil {
		if err := w.OnSynced(ctx); err != nil {
			log.Warn().Err(err).Msg("post-sync hook failed")
		}
	}
	return report, errors.Join(errs...)
}

func (w *Worker) syncView(ctx context.Context, v views.View, stamp time.Time) (ViewReport, error) {
	start := time.Now()
	rep := ViewReport{View: v.Name(), Endpoint: v.Endpoint()}

	fail := func(err error) (ViewReport, error) {
		rep.Error = err.Error()
		rep.Duration = time.Since(start)
		log.Error().
			Err(err).
			Str("view", rep.View).
			Int("pages", rep.Pages).
			Msg("view sync failed")
		return rep, fmt.Errorf("sync %s: %w", rep.View, err)
	}

	for offset := 0; w.maxPages <= 0 || rep.Pages < w.maxPages; offset += w.batchSize {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		query := url.Values{}
		query.Set(listview.ParamLimit, strconv.Itoa(w.batchSize))
		query.Set(listview.ParamOffset, strconv.Itoa(offset))

		page, err := w.upstream.FetchPage(ctx, v.Endpoint(), query)
		if err != nil {
			return fail(err)
		}
		rep.Pages++

		records, skipped := toRecords(page.Results)
		rep.Skipped += skipped
		n, err := w.mirror.UpsertRecords(ctx, v.Endpoint(), stamp, records)
		if err != nil {
			return fail(err)
		}
		rep.Records += n

		if !page.HasNext() || len(page.Results) == 0 {
			rep.Complete = true
			break
		}
	}

	// Only a full pass knows which records vanished upstream
	if rep.Complete {
		pruned, err := w.mirror.PruneBefore(ctx, v.Endpoint(), stamp)
		if err != nil {
			return fail(err)
		}
		rep.Pruned = pruned
	} else {
		log.Warn().Str("view", rep.View).Int("max_pages", w.maxPages).Msg("view sync stopped at page bound")
	}
	if err := w.mirror.MarkSynced(ctx, v.Endpoint(), rep.Records); err != nil {
		return fail(err)
	}

	rep.Duration = time.Since(start)
	log.Debug().
		Str("view", rep.View).
		Int("pages", rep.Pages).
		Int("records", rep.Records).
		Int("skipped", rep.Skipped).
		Int("pruned", rep.Pruned).
		Dur("duration", rep.Duration).
		Msg("view synced")
	return rep, nil
}

// toRecords keys raw results by their "id"; results without one are skipped.
func toRecords(results []json.RawMessage) ([]repositories.Record, int) {
	out := make([]repositories.Record, 0, len(results))
	skipped := 0
	for _, raw := range results {
		var head struct {
			ID *int64 `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil || head.ID == nil {
			skipped++
			continue
		}
		out = append(out, repositories.Record{ID: *head.ID, Body: raw})
	}
	return out, skipped
}
