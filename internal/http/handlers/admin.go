package handlers

import (
	"net/http"

	"godash/internal/services/mirrorsync"

	"github.com/rs/zerolog"
)

// TriggerSync runs one mirror sync and returns its report
func TriggerSync(worker *mirrorsync.Worker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if worker == nil {
			Problem(w, http.StatusServiceUnavailable, "Mirror Disabled", "no mirror database is configured")
			return
		}

		report, err := worker.SyncOnce(r.Context())
		if report == nil {
			RespondError(w, r, err)
			return
		}

		// Partial failures still produce a report
		status := http.StatusOK
		if err != nil {
			status = http.StatusMultiStatus
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("mirror sync finished with errors")
		}
		JSON(w, status, report)
	}
}
