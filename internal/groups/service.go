// Package groups implements interest groups and their chat history. Every
// read or write of a group's content is gated on the caller's membership.
package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tvtracker/backend/internal/models"
	"github.com/tvtracker/backend/internal/repositories"
	"github.com/tvtracker/backend/internal/validation"
)

var (
	// ErrForbidden is returned when the caller is not a member of the group.
	ErrForbidden = errors.New("groups: not a member of this group")
	// ErrAlreadyMember is returned when joining a group the caller already belongs to.
	ErrAlreadyMember = errors.New("groups: already a member")
)

const (
	// MessageHistoryLimit caps the messages returned by ListMessages.
	MessageHistoryLimit = 100
	// GroupGenreLimit caps the group genre leaderboard.
	GroupGenreLimit = 5
)

// GroupStore persists groups and their membership set.
type GroupStore interface {
	Create(ctx context.Context, group models.Group) error
	FindByID(ctx context.Context, groupID string) (models.Group, error)
	ListForUser(ctx context.Context, userID string) ([]models.Group, error)
	AddMember(ctx context.Context, groupID, userID string, joinedAt time.Time) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	Create(ctx context.Context, message models.ChatMessage) (models.ChatMessage, error)
	ListRecent(ctx context.Context, groupID string, limit int) ([]models.ChatMessage, error)
}

// GenreStore aggregates watches across a group's members.
type GenreStore interface {
	GroupTopGenres(ctx context.Context, groupID string, limit int) ([]models.GenreCount, error)
	GroupWatchCount(ctx context.Context, groupID string) (int, error)
}

// CreateGroupInput describes a new group.
type CreateGroupInput struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=1000"`
	Genres      []string `json:"genres" validate:"max=20,dive,required,max=100"`
	Avatar      string   `json:"avatar" validate:"omitempty,url,max=1000"`
}

// PostMessageInput describes a chat message.
type PostMessageInput struct {
	Content     string                  `json:"content" validate:"max=2000"`
	MessageType string                  `json:"messageType" validate:"omitempty,oneof=text media"`
	MediaData   *models.MediaAttachment `json:"mediaData"`
}

// Service coordinates groups, membership and chat.
type Service struct {
	groups   GroupStore
	messages MessageStore
	genres   GenreStore
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(groups GroupStore, messages MessageStore, genres GenreStore) *Service {
	return &Service{
		groups:   groups,
		messages: messages,
		genres:   genres,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create makes a new group with the creator as admin and sole member.
func (s *Service) Create(ctx context.Context, creatorID string, in CreateGroupInput) (models.Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Avatar = strings.TrimSpace(in.Avatar)
	if err := validation.Struct(in); err != nil {
		return models.Group{}, err
	}

	genres := in.Genres
	if genres == nil {
		genres = []string{}
	}

	now := s.now()
	group := models.Group{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Genres:      genres,
		Members:     []string{creatorID},
		AdminID:     creatorID,
		Avatar:      in.Avatar,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// ListForUser returns the caller's groups, most recently updated first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	return s.groups.ListForUser(ctx, userID)
}

// Join adds the caller to the group and returns the updated group.
func (s *Service) Join(ctx context.Context, userID, groupID string) (models.Group, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return models.Group{}, err
	}

	err := s.groups.AddMember(ctx, groupID, userID, s.now())
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return models.Group{}, ErrAlreadyMember
	case err != nil:
		return models.Group{}, err
	}

	return s.groups.FindByID(ctx, groupID)
}

// GenreStats reports the most watched genres across all current members.
func (s *Service) GenreStats(ctx context.Context, requesterID, groupID string) (models.GroupStats, error) {
	if err := s.requireMember(ctx, groupID, requesterID); err != nil {
		return models.GroupStats{}, err
	}

	genres, err := s.genres.GroupTopGenres(ctx, groupID, GroupGenreLimit)
	if err != nil {
		return models.GroupStats{}, fmt.Errorf("group top genres: %w", err)
	}
	total, err := s.genres.GroupWatchCount(ctx, groupID)
	if err != nil {
		return models.GroupStats{}, fmt.Errorf("group watch count: %w", err)
	}

	if genres == nil {
		genres = []models.GenreCount{}
	}
	return models.GroupStats{TopGenres: genres, TotalWatches: total}, nil
}

// PostMessage appends a message to the group's chat.
func (s *Service) PostMessage(ctx context.Context, senderID, groupID string, in PostMessageInput) (models.ChatMessage, error) {
	if err := s.requireMember(ctx, groupID, senderID); err != nil {
		return models.ChatMessage{}, err
	}

	in.Content = strings.TrimSpace(in.Content)
	if in.MessageType == "" {
		in.MessageType = models.MessageTypeText
	}
	if err := validation.Struct(in); err != nil {
		return models.ChatMessage{}, err
	}

	var media *models.MediaAttachment
	switch in.MessageType {
	case models.MessageTypeMedia:
		if err := validateAttachment(in.MediaData); err != nil {
			return models.ChatMessage{}, err
		}
		media = in.MediaData
	default:
		if in.Content == "" {
			return models.ChatMessage{}, validation.New("content", "content is required")
		}
	}

	return s.messages.Create(ctx, models.ChatMessage{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		SenderID:    senderID,
		MessageType: in.MessageType,
		Content:     in.Content,
		MediaData:   media,
		CreatedAt:   s.now(),
	})
}

// ListMessages returns the most recent messages, oldest first.
func (s *Service) ListMessages(ctx context.Context, requesterID, groupID string) ([]models.ChatMessage, error) {
	if err := s.requireMember(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	return s.messages.ListRecent(ctx, groupID, MessageHistoryLimit)
}

// requireMember treats a missing group the same as a foreign one.
func (s *Service) requireMember(ctx context.Context, groupID, userID string) error {
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func validateAttachment(media *models.MediaAttachment) error {
	if media == nil {
		return validation.New("mediaData", "mediaData is required for media messages")
	}
	if media.TMDBID <= 0 {
		return validation.New("mediaData.tmdbId", "mediaData.tmdbId must be a positive integer")
	}
	if media.MediaType != models.MediaTypeMovie && media.MediaType != models.MediaTypeTV {
		return validation.New("mediaData.mediaType", "mediaData.mediaType must be one of: movie tv")
	}
	if strings.TrimSpace(media.Title) == "" {
		return validation.New("mediaData.title", "mediaData.title is required")
	}
	return nil
}
