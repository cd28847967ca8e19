package handlers

import (
	"net/http"
	"time"

	"godash/internal/services/listing"
	"godash/internal/views"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ListViews describes every registered list view with its defaults as of now.
func ListViews(reg *views.Registry, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at := now()
		out := make([]views.Descriptor, 0)
		for _, v := range reg.All() {
			out = append(out, v.Describe(at))
		}
		JSON(w, http.StatusOK, map[string]any{"views": out})
	}
}

// OpenSession mounts a view and returns the new session's state.
func OpenSession(svc *listing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.Open(chi.URLParam(r, "view"))
		if err != nil {
			RespondError(w, r, err)
			return
		}
		zerolog.Ctx(r.Context()).Info().
			Str("session_id", snap.ID).
			Str("view", snap.View).
			Msg("session opened")

		w.Header().Set("Location", "/api/v1/sessions/"+snap.ID)
		JSON(w, http.StatusCreated, snap)
	}
}
