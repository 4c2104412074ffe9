package repositories

import (
	"context"
	"fmt"

	"github.com/tvtracker/backend/internal/db"
	"github.com/tvtracker/backend/internal/models"
)

// PostgresChatRepository stores append-only group messages.
type PostgresChatRepository struct {
	pool db.Pool
}

// NewPostgresChatRepository constructs a chat repository backed by PostgreSQL.
func NewPostgresChatRepository(pool db.Pool) *PostgresChatRepository {
	return &PostgresChatRepository{pool: pool}
}

// Create stores a message and returns it with the sender's username filled in.
func (r *PostgresChatRepository) Create(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		mediaTMDBID             *int
		mediaTitle, mediaPoster *string
		mediaType               *string
	)
	if msg.MediaData != nil {
		mediaTMDBID = &msg.MediaData.TMDBID
		mediaTitle = &msg.MediaData.Title
		mediaPoster = &msg.MediaData.Poster
		mediaType = &msg.MediaData.MediaType
	}

	err = conn.QueryRow(ctx, `
        WITH inserted AS (
            INSERT INTO chat_messages (id, group_id, sender_id, message_type, content,
                                       media_tmdb_id, media_title, media_poster, media_type, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
            RETURNING sender_id
        )
        SELECT u.username FROM inserted JOIN users u ON u.id = inserted.sender_id
    `, msg.ID, msg.GroupID, msg.SenderID, msg.MessageType, msg.Content,
		mediaTMDBID, mediaTitle, mediaPoster, mediaType, msg.CreatedAt).Scan(&msg.SenderUsername)
	if err != nil {
		return models.ChatMessage{}, translateWriteError(err, "insert chat message")
	}

	return msg, nil
}

// ListRecent returns the newest limit messages of a group, oldest first.
func (r *PostgresChatRepository) ListRecent(ctx context.Context, groupID string, limit int) ([]models.ChatMessage, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, group_id, sender_id, username, message_type, content,
               media_tmdb_id, media_title, media_poster, media_type, created_at
        FROM (
            SELECT c.id, c.group_id, c.sender_id, u.username, c.message_type, c.content,
                   c.media_tmdb_id, c.media_title, c.media_poster, c.media_type, c.created_at
            FROM chat_messages c
            JOIN users u ON u.id = c.sender_id
            WHERE c.group_id = $1
            ORDER BY c.created_at DESC, c.id DESC
            LIMIT $2
        ) recent
        ORDER BY created_at ASC, id ASC
    `, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var (
			msg                                models.ChatMessage
			mediaTMDBID                        *int
			mediaTitle, mediaPoster, mediaType *string
		)
		if err := rows.Scan(&msg.ID, &msg.GroupID, &msg.SenderID, &msg.SenderUsername, &msg.MessageType, &msg.Content,
			&mediaTMDBID, &mediaTitle, &mediaPoster, &mediaType, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		if mediaTMDBID != nil {
			msg.MediaData = &models.MediaAttachment{
				TMDBID:    *mediaTMDBID,
				Title:     deref(mediaTitle),
				Poster:    deref(mediaPoster),
				MediaType: deref(mediaType),
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	return messages, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ ChatRepository = (*PostgresChatRepository)(nil)
