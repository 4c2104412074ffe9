// Package tracker implements watch tracking and the watchlist. Recording a
// watch removes the matching watchlist entry on a best-effort basis.
package tracker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tvtracker/backend/internal/logging"
	"github.com/tvtracker/backend/internal/models"
	"github.com/tvtracker/backend/internal/repositories"
	"github.com/tvtracker/backend/internal/validation"
)

// RecentMoviesLimit caps the recent movie list.
const RecentMoviesLimit = 20

// WatchStore is the persistence the watch service relies on.
type WatchStore interface {
	Create(ctx context.Context, watch models.Watch) error
	ListRecent(ctx context.Context, userID, mediaType string, limit int) ([]models.Watch, error)
	CurrentlyWatching(ctx context.Context, userID string) ([]models.ShowProgress, error)
	EpisodeProgress(ctx context.Context, userID string, tmdbID int) ([]models.Watch, error)
	Exists(ctx context.Context, userID string, key models.WatchKey) (bool, error)
	DeleteByID(ctx context.Context, userID, watchID string) error
	DeleteByKey(ctx context.Context, userID string, key models.WatchKey) error
}

// WatchlistRemover deletes a watchlist entry; satisfied by the watchlist repository.
type WatchlistRemover interface {
	Delete(ctx context.Context, userID string, tmdbID int, mediaType string) error
}

// RecordWatchInput describes a watch to record.
type RecordWatchInput struct {
	MediaType string     `json:"mediaType" validate:"required,oneof=movie tv"`
	TMDBID    int        `json:"tmdbId" validate:"required,gt=0"`
	Title     string     `json:"title" validate:"required,max=500"`
	Poster    string     `json:"poster" validate:"max=1000"`
	Genres    []string   `json:"genres" validate:"max=50,dive,required,max=100"`
	Season    *int       `json:"season" validate:"omitempty,gte=0"`
	Episode   *int       `json:"episode" validate:"omitempty,gte=0"`
	Rating    *int       `json:"rating" validate:"omitempty,gte=1,lte=10"`
	WatchedAt *time.Time `json:"watchedAt"`
}

// WatchService records and queries watch history.
type WatchService struct {
	watches   WatchStore
	watchlist WatchlistRemover
	now       func() time.Time
}

// NewWatchService constructs a WatchService.
func NewWatchService(watches WatchStore, watchlist WatchlistRemover) *WatchService {
	return &WatchService{
		watches:   watches,
		watchlist: watchlist,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordWatch stores a watch and removes the title from the user's watchlist.
// A duplicate watch yields repositories.ErrConflict. A failed watchlist cleanup
// is logged and does not undo the insert.
func (s *WatchService) RecordWatch(ctx context.Context, userID string, in RecordWatchInput) (models.Watch, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return models.Watch{}, err
	}

	season, episode := in.Season, in.Episode
	if in.MediaType == models.MediaTypeMovie {
		season, episode = nil, nil
	}

	now := s.now()
	watchedAt := now
	if in.WatchedAt != nil && !in.WatchedAt.IsZero() {
		watchedAt = in.WatchedAt.UTC()
	}

	genres := in.Genres
	if genres == nil {
		genres = []string{}
	}

	watch := models.Watch{
		ID:        uuid.NewString(),
		UserID:    userID,
		MediaType: in.MediaType,
		TMDBID:    in.TMDBID,
		Title:     in.Title,
		Poster:    in.Poster,
		Genres:    genres,
		Season:    season,
		Episode:   episode,
		Rating:    in.Rating,
		WatchedAt: watchedAt,
		CreatedAt: now,
	}

	if err := s.watches.Create(ctx, watch); err != nil {
		return models.Watch{}, err
	}

	if err := s.watchlist.Delete(ctx, userID, watch.TMDBID, watch.MediaType); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logging.FromContext(ctx).Warn("watchlist cleanup failed",
			"tmdbId", watch.TMDBID, "mediaType", watch.MediaType, "error", err)
	}

	return watch, nil
}

// RecentMovies returns the newest movie watches.
func (s *WatchService) RecentMovies(ctx context.Context, userID string) ([]models.Watch, error) {
	return s.watches.ListRecent(ctx, userID, models.MediaTypeMovie, RecentMoviesLimit)
}

// CurrentlyWatching returns per-show progress derived from the raw watch rows.
func (s *WatchService) CurrentlyWatching(ctx context.Context, userID string) ([]models.ShowProgress, error) {
	return s.watches.CurrentlyWatching(ctx, userID)
}

// EpisodeProgress returns the watched episodes of one show in season/episode order.
func (s *WatchService) EpisodeProgress(ctx context.Context, userID string, tmdbID int) ([]models.Watch, error) {
	if tmdbID <= 0 {
		return nil, validation.New("tmdbId", "tmdbId must be a positive integer")
	}
	return s.watches.EpisodeProgress(ctx, userID, tmdbID)
}

// IsWatched reports whether a matching watch exists.
func (s *WatchService) IsWatched(ctx context.Context, userID string, key models.WatchKey) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	return s.watches.Exists(ctx, userID, key)
}

// RemoveByID deletes one of the caller's watches.
func (s *WatchService) RemoveByID(ctx context.Context, userID, watchID string) error {
	if strings.TrimSpace(watchID) == "" {
		return validation.New("id", "id is required")
	}
	return s.watches.DeleteByID(ctx, userID, watchID)
}

// RemoveByKey deletes the most recent watch matching the natural key.
func (s *WatchService) RemoveByKey(ctx context.Context, userID string, key models.WatchKey) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.watches.DeleteByKey(ctx, userID, key)
}

func validateKey(key models.WatchKey) error {
	if key.TMDBID <= 0 {
		return validation.New("tmdbId", "tmdbId must be a positive integer")
	}
	if !validMediaType(key.MediaType) {
		return validation.New("mediaType", "mediaType must be one of: movie tv")
	}
	return nil
}

func validMediaType(mediaType string) bool {
	return mediaType == models.MediaTypeMovie || mediaType == models.MediaTypeTV
}
