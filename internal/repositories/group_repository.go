package repositories

import (
	"context"
	"time"

	"github.com/tvtracker/backend/internal/models"
)

// GroupRepository defines persistence for groups and their membership set.
type GroupRepository interface {
	Create(ctx context.Context, group models.Group) error
	FindByID(ctx context.Context, groupID string) (models.Group, error)
	ListForUser(ctx context.Context, userID string) ([]models.Group, error)
	AddMember(ctx context.Context, groupID, userID string, joinedAt time.Time) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

// ChatRepository defines persistence for group chat history.
type ChatRepository interface {
	Create(ctx context.Context, message models.ChatMessage) (models.ChatMessage, error)
	ListRecent(ctx context.Context, groupID string, limit int) ([]models.ChatMessage, error)
}
