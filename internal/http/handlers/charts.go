package handlers

import (
	"context"
	"net/http"

	"godash/internal/services/aggregate"
)

// chartFilter turns query parameters into a view filter; nil keeps the view defaults.
func chartFilter(r *http.Request) map[string]any {
	q := r.URL.Query()
	if len(q) == 0 {
		return nil
	}
	filter := make(map[string]any, len(q))
	for k := range q {
		filter[k] = q.Get(k)
	}
	return filter
}

func chart[T any](load func(context.Context, map[string]any) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := load(r.Context(), chartFilter(r))
		if err != nil {
			RespondFetchError(w, r, err)
			return
		}
		JSON(w, http.StatusOK, out)
	}
}

// EmergenciesByType serves emergency counts per disaster type.
func EmergenciesByType(svc *aggregate.Service) http.HandlerFunc {
	return chart(svc.EmergenciesByType)
}

// AppealFunding serves requested versus funded amounts of appeals.
func AppealFunding(svc *aggregate.Service) http.HandlerFunc {
	return chart(svc.AppealFunding)
}

// ProjectsBySector serves 3W projects grouped by sector and status.
func ProjectsBySector(svc *aggregate.Service) http.HandlerFunc {
	return chart(svc.ProjectsBySector)
}
