// Package app assembles the dashboard backend from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"godash/internal/cache"
	"godash/internal/config"
	httpx "godash/internal/http"
	"godash/internal/provider"
	"godash/internal/provider/goapi"
	"godash/internal/services/aggregate"
	"godash/internal/services/listing"
	"godash/internal/services/mirrorsync"
	"godash/internal/store/postgres"
	"godash/internal/store/repositories"
	"godash/internal/views"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// App holds the wired components.
type App struct {
	Config   config.Cfg
	Views    *views.Registry
	Sources  *provider.Registry
	Upstream *goapi.Client
	Cache    *cache.PageCache // nil without Redis
	Mirror   *postgres.Repo   // nil without a database
	Listing  *listing.Service
	Charts   *aggregate.Service
	Sync     *mirrorsync.Worker // nil without a database

	closers []func()
}

// Build connects the optional stores and wires the services. Redis and Postgres
// are only contacted when configured.
func Build(ctx context.Context, cfg config.Cfg) (*App, error) {
	a := &App{
		Config:   cfg,
		Views:    views.DefaultRegistry(),
		Sources:  provider.NewRegistry(),
		Upstream: goapi.New(cfg.API),
	}

	var primary repositories.PageSource = a.Upstream
	if cfg.CacheEnabled() {
		client, err := cache.New(ctx, cfg.Redis.Addr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.Cache = cache.NewPageCache(client, a.Upstream, cfg.Redis.TTL)
		primary = a.Cache
	}
	a.Sources.RegisterSource(provider.SourceGoAPI, primary)

	if cfg.MirrorEnabled() {
		pool, err := postgres.Open(ctx, cfg.DB.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			a.Close()
			return nil, err
		}
		a.Mirror = postgres.NewRepo(pool)
		a.Sources.RegisterSource(provider.SourceMirror, a.Mirror)

		a.Sync = mirrorsync.NewWorker(a.Views, a.Upstream, a.Mirror, cfg.Sync)
		if a.Cache != nil {
			a.Sync.OnSynced = a.Cache.Bump
		}
	}

	a.Listing = listing.NewService(a.Views, a.Sources, cfg.Session.TTL)
	a.Charts = aggregate.NewService(a.Views, a.Sources)

	log.Info().
		Str("upstream", cfg.API.BaseURL).
		Bool("cache", a.Cache != nil).
		Bool("mirror", a.Mirror != nil).
		Msg("dashboard backend wired")
	return a, nil
}

// Close releases the store connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Handler returns the HTTP router.
func (a *App) Handler() http.Handler {
	return httpx.NewRouter(httpx.RouterDependencies{
		Config:           a.Config,
		ListingService:   a.Listing,
		ChartService:     a.Charts,
		SyncWorker:       a.Sync,
		ProviderRegistry: a.Sources,
	})
}

// Serve runs the HTTP server and the background workers until ctx is cancelled,
// then shuts the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.Config.App.Port,
		Handler:      a.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Listing.Run(ctx)
		return nil
	})
	if a.Sync != nil {
		g.Go(func() error {
			a.Sync.Run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		log.Info().Msgf("dashboard API listening on :%s", a.Config.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		log.Info().Msg("server stopped")
		return err
	})
	return g.Wait()
}
