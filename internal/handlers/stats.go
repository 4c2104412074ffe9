package handlers

import "net/http"

// StatsHandler serves the statistics report.
type StatsHandler struct {
	Engine StatsEngine
}

// Get handles GET /api/stats.
func (h StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	report, err := h.Engine.Compute(r.Context(), userID)
	if err != nil {
		respondError(r.Context(), w, err, "statistics")
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, report)
}
