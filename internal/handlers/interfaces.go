package handlers

import (
	"context"
	"io"

	"github.com/tvtracker/backend/internal/groups"
	"github.com/tvtracker/backend/internal/models"
	"github.com/tvtracker/backend/internal/tracker"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// SessionManager issues and refreshes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Authenticate(ctx context.Context, accessToken string) (string, error)
	Revoke(ctx context.Context, refreshToken string)
}

// WatchService records and queries watch history.
type WatchService interface {
	RecordWatch(ctx context.Context, userID string, in tracker.RecordWatchInput) (models.Watch, error)
	RecentMovies(ctx context.Context, userID string) ([]models.Watch, error)
	CurrentlyWatching(ctx context.Context, userID string) ([]models.ShowProgress, error)
	EpisodeProgress(ctx context.Context, userID string, tmdbID int) ([]models.Watch, error)
	IsWatched(ctx context.Context, userID string, key models.WatchKey) (bool, error)
	RemoveByID(ctx context.Context, userID, watchID string) error
	RemoveByKey(ctx context.Context, userID string, key models.WatchKey) error
}

// WatchlistService manages intent-to-watch entries.
type WatchlistService interface {
	Add(ctx context.Context, userID string, in tracker.AddWatchlistInput) (models.WatchlistItem, error)
	List(ctx context.Context, userID, filter string) ([]models.WatchlistItem, error)
	Remove(ctx context.Context, userID string, tmdbID int, mediaType string) error
	Contains(ctx context.Context, userID string, tmdbID int, mediaType string) (bool, error)
}

// StatsEngine computes the per-user statistics report.
type StatsEngine interface {
	Compute(ctx context.Context, userID string) (models.UserStats, error)
}

// GroupService coordinates groups, membership and chat.
type GroupService interface {
	Create(ctx context.Context, creatorID string, in groups.CreateGroupInput) (models.Group, error)
	ListForUser(ctx context.Context, userID string) ([]models.Group, error)
	Join(ctx context.Context, userID, groupID string) (models.Group, error)
	GenreStats(ctx context.Context, requesterID, groupID string) (models.GroupStats, error)
	PostMessage(ctx context.Context, senderID, groupID string, in groups.PostMessageInput) (models.ChatMessage, error)
	ListMessages(ctx context.Context, requesterID, groupID string) ([]models.ChatMessage, error)
}

// AvatarUploader stores group avatar images.
type AvatarUploader interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
	MaxBytes() int64
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
