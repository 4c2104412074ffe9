package repositories

import (
	"context"

	"github.com/tvtracker/backend/internal/models"
)

// WatchRepository defines persistence for watch records.
type WatchRepository interface {
	Create(ctx context.Context, watch models.Watch) error
	ListRecent(ctx context.Context, userID, mediaType string, limit int) ([]models.Watch, error)
	CurrentlyWatching(ctx context.Context, userID string) ([]models.ShowProgress, error)
	EpisodeProgress(ctx context.Context, userID string, tmdbID int) ([]models.Watch, error)
	Exists(ctx context.Context, userID string, key models.WatchKey) (bool, error)
	DeleteByID(ctx context.Context, userID, watchID string) error
	DeleteByKey(ctx context.Context, userID string, key models.WatchKey) error
}

// WatchlistRepository defines persistence for watchlist entries.
type WatchlistRepository interface {
	Create(ctx context.Context, item models.WatchlistItem) error
	List(ctx context.Context, userID, mediaType string) ([]models.WatchlistItem, error)
	Delete(ctx context.Context, userID string, tmdbID int, mediaType string) error
	Exists(ctx context.Context, userID string, tmdbID int, mediaType string) (bool, error)
}
