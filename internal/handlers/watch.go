package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tvtracker/backend/internal/models"
	"github.com/tvtracker/backend/internal/tracker"
)

// WatchHandler exposes watch tracking under /api/watch.
type WatchHandler struct {
	Watches WatchService
}

// Record handles POST /api/watch.
func (h WatchHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var in tracker.RecordWatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err, "watch")
		return
	}

	watch, err := h.Watches.RecordWatch(ctx, userID, in)
	if err != nil {
		respondError(ctx, w, err, "watch")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, watch)
}

// Recent handles GET /api/watch.
func (h WatchHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	watches, err := h.Watches.RecentMovies(r.Context(), userID)
	if err != nil {
		respondError(r.Context(), w, err, "recent watches")
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, watches)
}

// CurrentlyWatching handles GET /api/watch/currently-watching.
func (h WatchHandler) CurrentlyWatching(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	shows, err := h.Watches.CurrentlyWatching(r.Context(), userID)
	if err != nil {
		respondError(r.Context(), w, err, "currently watching")
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, shows)
}

// Progress handles GET /api/watch/progress/{tmdbId}.
func (h WatchHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	tmdbID, err := pathInt(r, "tmdbId")
	if err != nil {
		respondError(ctx, w, err, "episode progress")
		return
	}

	episodes, err := h.Watches.EpisodeProgress(ctx, userID, tmdbID)
	if err != nil {
		respondError(ctx, w, err, "episode progress")
		return
	}

	respondJSON(ctx, w, http.StatusOK, episodes)
}

// Check handles GET /api/watch/check/{tmdbId}/{mediaType}?season=&episode=.
func (h WatchHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	key, err := watchKeyFromRequest(r)
	if err != nil {
		respondError(ctx, w, err, "watch check")
		return
	}

	watched, err := h.Watches.IsWatched(ctx, userID, key)
	if err != nil {
		respondError(ctx, w, err, "watch check")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"isWatched": watched})
}

// RemoveByKey handles DELETE /api/watch/remove.
func (h WatchHandler) RemoveByKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req removeWatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err, "watch")
		return
	}

	key := models.WatchKey{
		TMDBID:    req.TMDBID,
		MediaType: strings.TrimSpace(req.MediaType),
		Season:    req.Season,
		Episode:   req.Episode,
	}
	if err := h.Watches.RemoveByKey(ctx, userID, key); err != nil {
		respondError(ctx, w, err, "watch")
		return
	}

	respondMessage(ctx, w, http.StatusOK, "watch removed")
}

// RemoveByID handles DELETE /api/watch/{id}.
func (h WatchHandler) RemoveByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.Watches.RemoveByID(ctx, userID, chi.URLParam(r, "id")); err != nil {
		respondError(ctx, w, err, "watch")
		return
	}

	respondMessage(ctx, w, http.StatusOK, "watch removed")
}

type removeWatchRequest struct {
	TMDBID    int    `json:"tmdbId"`
	MediaType string `json:"mediaType"`
	Season    *int   `json:"season"`
	Episode   *int   `json:"episode"`
}

func watchKeyFromRequest(r *http.Request) (models.WatchKey, error) {
	tmdbID, err := pathInt(r, "tmdbId")
	if err != nil {
		return models.WatchKey{}, err
	}
	season, err := queryOptionalInt(r, "season")
	if err != nil {
		return models.WatchKey{}, err
	}
	episode, err := queryOptionalInt(r, "episode")
	if err != nil {
		return models.WatchKey{}, err
	}
	return models.WatchKey{
		TMDBID:    tmdbID,
		MediaType: chi.URLParam(r, "mediaType"),
		Season:    season,
		Episode:   episode,
	}, nil
}
