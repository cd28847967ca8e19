package handlers

import (
	"net/http"

	middlewarex "godash/internal/http/middleware"
	"godash/internal/services/listing"
)

type setPageRequest struct {
	Page *int `json:"page" validate:"required"`
}

type setSortRequest struct {
	// Empty clears the sort.
	Field string `json:"field" validate:"omitempty,max=64"`
}

type setFilterFieldRequest struct {
	Key   string `json:"key" validate:"required,max=64"`
	Value any    `json:"value"`
}

type setFilterRequest struct {
	Filter map[string]any `json:"filter" validate:"required"`
}

// GetSession returns a session's state and derived query.
func GetSession(svc *listing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.Get(middlewarex.SessionID(r.Context()))
		if err != nil {
			RespondError(w, r, err)
			return
		}
		JSON(w, http.StatusOK, snap)
	}
}

// LoadPage fetches the session's current page.
func LoadPage(svc *listing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.Load(r.Context(), middlewarex.SessionID(r.Context()))
		if err != nil {
			RespondFetchError(w, r, err)
			return
		}
		if page.Stale {
			w.Header().Set("Warning", `110 - "Response is Stale"`)
		}
		JSON(w, http.StatusOK, page)
	}
}

// SetPage moves the session to another page.
func SetPage(svc *listing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setPageRequest
		if err := decodeBody(r, &req); err != nil {
			RespondError(w, r, err)
			return
		}
		respondSnapshot(w, r)(svc.SetPage(middlewarex.SessionID(r.Context()), *req.Page))
	}
}

// SetSort toggles or switches the sort column.
func SetSort(svc *listing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setSortRequest
		if err := decodeBody(r, &req); err != nil {
			RespondError(w, r, err)
			return
		}
		respondSnapshot(w, r)(svc.SetSort(middlewarex.SessionID(r.Context()), req.Field))
	}
}

// SetFilterField sets or clears a single filter key.
func SetFilterField(svc *listing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setFilterFieldRequest
		if err := decodeBody(r, &req); err != nil {
			RespondError(w, r, err)
			return
		}
		respondSnapshot(w, r)(svc.SetFilterField(middlewarex.SessionID(r.Context()), req.Key, req.Value))
	}
}

// SetFilter replaces the whole filter; an empty object clears it.
func SetFilter(svc *listing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setFilterRequest
		if err := decodeBody(r, &req); err != nil {
			RespondError(w, r, err)
			return
		}
		respondSnapshot(w, r)(svc.SetFilter(middlewarex.SessionID(r.Context()), req.Filter))
	}
}

// ResetFilter restores the view's default filter.
func ResetFilter(svc *listing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondSnapshot(w, r)(svc.ResetFilter(middlewarex.SessionID(r.Context())))
	}
}

// CloseSession unmounts the session.
func CloseSession(svc *listing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Close(middlewarex.SessionID(r.Context())); err != nil {
			RespondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func respondSnapshot(w http.ResponseWriter, r *http.Request) func(*listing.Snapshot, error) {
	return func(snap *listing.Snapshot, err error) {
		if err != nil {
			RespondError(w, r, err)
			return
		}
		JSON(w, http.StatusOK, snap)
	}
}
