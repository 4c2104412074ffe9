package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tvtracker/backend/internal/models"
	"github.com/tvtracker/backend/internal/validation"
)

// Watchlist filters accepted by List.
const (
	FilterAll   = "all"
	FilterMovie = models.MediaTypeMovie
	FilterTV    = models.MediaTypeTV
)

// WatchlistStore is the persistence the watchlist service relies on.
type WatchlistStore interface {
	Create(ctx context.Context, item models.WatchlistItem) error
	List(ctx context.Context, userID, mediaType string) ([]models.WatchlistItem, error)
	Delete(ctx context.Context, userID string, tmdbID int, mediaType string) error
	Exists(ctx context.Context, userID string, tmdbID int, mediaType string) (bool, error)
}

// AddWatchlistInput describes a title to add to the watchlist.
type AddWatchlistInput struct {
	TMDBID    int    `json:"tmdbId" validate:"required,gt=0"`
	MediaType string `json:"mediaType" validate:"required,oneof=movie tv"`
	Title     string `json:"title" validate:"required,max=500"`
	Poster    string `json:"poster" validate:"max=1000"`
	Year      *int   `json:"year" validate:"omitempty,gte=1800,lte=3000"`
	Overview  string `json:"overview" validate:"max=5000"`
}

// WatchlistService manages intent-to-watch entries.
type WatchlistService struct {
	items WatchlistStore
	now   func() time.Time
}

// NewWatchlistService constructs a WatchlistService.
func NewWatchlistService(items WatchlistStore) *WatchlistService {
	return &WatchlistService{items: items, now: func() time.Time { return time.Now().UTC() }}
}

// Add creates an entry; a duplicate yields repositories.ErrConflict.
func (s *WatchlistService) Add(ctx context.Context, userID string, in AddWatchlistInput) (models.WatchlistItem, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return models.WatchlistItem{}, err
	}

	item := models.WatchlistItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		TMDBID:    in.TMDBID,
		MediaType: in.MediaType,
		Title:     in.Title,
		Poster:    in.Poster,
		Year:      in.Year,
		Overview:  in.Overview,
		CreatedAt: s.now(),
	}
	if err := s.items.Create(ctx, item); err != nil {
		return models.WatchlistItem{}, err
	}
	return item, nil
}

// List returns entries matching filter, newest first. An empty filter means all.
func (s *WatchlistService) List(ctx context.Context, userID, filter string) ([]models.WatchlistItem, error) {
	switch filter {
	case "", FilterAll:
		return s.items.List(ctx, userID, "")
	case FilterMovie, FilterTV:
		return s.items.List(ctx, userID, filter)
	default:
		return nil, validation.New("type", "type must be one of: all movie tv")
	}
}

// Remove deletes an entry; a missing entry yields repositories.ErrNotFound.
func (s *WatchlistService) Remove(ctx context.Context, userID string, tmdbID int, mediaType string) error {
	if err := validateKey(models.WatchKey{TMDBID: tmdbID, MediaType: mediaType}); err != nil {
		return err
	}
	return s.items.Delete(ctx, userID, tmdbID, mediaType)
}

// Contains reports whether the title is on the user's watchlist.
func (s *WatchlistService) Contains(ctx context.Context, userID string, tmdbID int, mediaType string) (bool, error) {
	if err := validateKey(models.WatchKey{TMDBID: tmdbID, MediaType: mediaType}); err != nil {
		return false, err
	}
	return s.items.Exists(ctx, userID, tmdbID, mediaType)
}
