package repositories

import (
	"context"
	"fmt"

	"github.com/tvtracker/backend/internal/db"
	"github.com/tvtracker/backend/internal/models"
)

// PostgresWatchlistRepository stores watchlist entries, unique per
// (user, tmdb id, media type).
type PostgresWatchlistRepository struct {
	pool db.Pool
}

// NewPostgresWatchlistRepository constructs a watchlist repository backed by PostgreSQL.
func NewPostgresWatchlistRepository(pool db.Pool) *PostgresWatchlistRepository {
	return &PostgresWatchlistRepository{pool: pool}
}

// Create inserts a watchlist entry. Duplicates yield ErrConflict.
func (r *PostgresWatchlistRepository) Create(ctx context.Context, item models.WatchlistItem) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watchlist_items (id, user_id, tmdb_id, media_type, title, poster, year, overview, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, item.ID, item.UserID, item.TMDBID, item.MediaType, item.Title, item.Poster, item.Year, item.Overview, item.CreatedAt)
	if err != nil {
		return translateWriteError(err, "insert watchlist item")
	}

	return nil
}

// List returns the user's entries newest first. An empty mediaType lists everything.
func (r *PostgresWatchlistRepository) List(ctx context.Context, userID, mediaType string) ([]models.WatchlistItem, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, user_id, tmdb_id, media_type, title, poster, year, overview, created_at
        FROM watchlist_items
        WHERE user_id = $1 AND ($2::TEXT = '' OR media_type = $2)
        ORDER BY created_at DESC, id
    `, userID, mediaType)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	items := []models.WatchlistItem{}
	for rows.Next() {
		var item models.WatchlistItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.TMDBID, &item.MediaType, &item.Title, &item.Poster, &item.Year, &item.Overview, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist: %w", err)
	}

	return items, nil
}

// Delete removes an entry, returning ErrNotFound when nothing matched.
func (r *PostgresWatchlistRepository) Delete(ctx context.Context, userID string, tmdbID int, mediaType string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM watchlist_items
        WHERE user_id = $1 AND tmdb_id = $2 AND media_type = $3
    `, userID, tmdbID, mediaType)
	if err != nil {
		return fmt.Errorf("delete watchlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Exists reports whether the entry is present.
func (r *PostgresWatchlistRepository) Exists(ctx context.Context, userID string, tmdbID int, mediaType string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM watchlist_items
            WHERE user_id = $1 AND tmdb_id = $2 AND media_type = $3
        )
    `, userID, tmdbID, mediaType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check watchlist item: %w", err)
	}

	return exists, nil
}

var _ WatchlistRepository = (*PostgresWatchlistRepository)(nil)
