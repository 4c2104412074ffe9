package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tvtracker/backend/internal/tracker"
)

// WatchlistHandler exposes the watchlist under /api/watchlist.
type WatchlistHandler struct {
	Watchlist WatchlistService
}

// Add handles POST /api/watchlist.
func (h WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var in tracker.AddWatchlistInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err, "watchlist item")
		return
	}

	item, err := h.Watchlist.Add(ctx, userID, in)
	if err != nil {
		respondError(ctx, w, err, "watchlist item")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, item)
}

// List handles GET /api/watchlist?type=all|movie|tv.
func (h WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	items, err := h.Watchlist.List(ctx, userID, strings.TrimSpace(r.URL.Query().Get("type")))
	if err != nil {
		respondError(ctx, w, err, "watchlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, items)
}

// Remove handles DELETE /api/watchlist.
func (h WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req removeWatchlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err, "watchlist item")
		return
	}

	if err := h.Watchlist.Remove(ctx, userID, req.TMDBID, strings.TrimSpace(req.MediaType)); err != nil {
		respondError(ctx, w, err, "watchlist item")
		return
	}

	respondMessage(ctx, w, http.StatusOK, "removed from watchlist")
}

// Check handles GET /api/watchlist/check/{tmdbId}/{mediaType}.
func (h WatchlistHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	tmdbID, err := pathInt(r, "tmdbId")
	if err != nil {
		respondError(ctx, w, err, "watchlist check")
		return
	}

	found, err := h.Watchlist.Contains(ctx, userID, tmdbID, chi.URLParam(r, "mediaType"))
	if err != nil {
		respondError(ctx, w, err, "watchlist check")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"inWatchlist": found})
}

type removeWatchlistRequest struct {
	TMDBID    int    `json:"tmdbId"`
	MediaType string `json:"mediaType"`
}
