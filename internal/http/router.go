package httpx

import (
	"net/http"
	"time"

	"godash/internal/config"
	"godash/internal/http/handlers"
	middlewarex "godash/internal/http/middleware"
	"godash/internal/provider"
	"godash/internal/services/aggregate"
	"godash/internal/services/listing"
	"godash/internal/services/mirrorsync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// RouterDependencies holds all dependencies for the HTTP router
type RouterDependencies struct {
	Config           config.Cfg
	ListingService   *listing.Service
	ChartService     *aggregate.Service
	SyncWorker       *mirrorsync.Worker // nil without a mirror database
	ProviderRegistry *provider.Registry
	Now              func() time.Time
}

// NewRouter creates the HTTP router
func NewRouter(deps RouterDependencies) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middlewarex.RequestLogger)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if limit := deps.Config.Sec.RateLimitPerMin; limit > 0 {
		r.Use(httprate.Limit(limit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				handlers.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded")
			}),
		))
	}

	// Health check (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":   "ok",
			"sessions": deps.ListingService.Len(),
			"mirror":   deps.SyncWorker != nil,
		}
		if deps.ProviderRegistry != nil {
			body["sources"] = deps.ProviderRegistry.ListSources()
		}
		handlers.JSON(w, http.StatusOK, body)
	})

	// Admin routes (protected by admin auth)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.AdminAuth(deps.Config))
		r.Post("/sync", handlers.TriggerSync(deps.SyncWorker))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/views", handlers.ListViews(deps.ListingService.Views(), deps.Now))
		r.Post("/views/{view}/sessions", handlers.OpenSession(deps.ListingService))

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(middlewarex.SessionScope)
			r.Get("/", handlers.GetSession(deps.ListingService))
			r.Delete("/", handlers.CloseSession(deps.ListingService))
			r.Get("/page", handlers.LoadPage(deps.ListingService))
			r.Put("/page", handlers.SetPage(deps.ListingService))
			r.Put("/sort", handlers.SetSort(deps.ListingService))
			r.Patch("/filter", handlers.SetFilterField(deps.ListingService))
			r.Put("/filter", handlers.SetFilter(deps.ListingService))
			r.Delete("/filter", handlers.ResetFilter(deps.ListingService))
		})

		if deps.ChartService != nil {
			r.Route("/charts", func(r chi.Router) {
				r.Get("/emergencies-by-type", handlers.EmergenciesByType(deps.ChartService))
				r.Get("/appeal-funding", handlers.AppealFunding(deps.ChartService))
				r.Get("/projects-by-sector", handlers.ProjectsBySector(deps.ChartService))
			})
		}
	})

	return r
}
