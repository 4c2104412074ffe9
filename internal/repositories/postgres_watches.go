package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tvtracker/backend/internal/db"
	"github.com/tvtracker/backend/internal/models"
)

// PostgresWatchRepository stores watch records. Uniqueness of the natural key
// (user, tmdb id, media type, season, episode) is enforced by a unique index.
type PostgresWatchRepository struct {
	pool db.Pool
}

// NewPostgresWatchRepository constructs a watch repository backed by PostgreSQL.
func NewPostgresWatchRepository(pool db.Pool) *PostgresWatchRepository {
	return &PostgresWatchRepository{pool: pool}
}

const watchColumns = `id, user_id, media_type, tmdb_id, title, poster, genres, season, episode, rating, watched_at, created_at`

// Create inserts a watch record. A duplicate natural key yields ErrConflict.
func (r *PostgresWatchRepository) Create(ctx context.Context, w models.Watch) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	genres := w.Genres
	if genres == nil {
		genres = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO watches (`+watchColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, w.ID, w.UserID, w.MediaType, w.TMDBID, w.Title, w.Poster, genres, w.Season, w.Episode, w.Rating, w.WatchedAt, w.CreatedAt)
	if err != nil {
		return translateWriteError(err, "insert watch")
	}

	return nil
}

// ListRecent returns the newest watches of the given media type.
func (r *PostgresWatchRepository) ListRecent(ctx context.Context, userID, mediaType string, limit int) ([]models.Watch, error) {
	return r.query(ctx, "recent watches", `
        SELECT `+watchColumns+`
        FROM watches
        WHERE user_id = $1 AND media_type = $2
        ORDER BY watched_at DESC, id
        LIMIT $3
    `, userID, mediaType, limit)
}

// EpisodeProgress returns every tv watch of one show ordered by season and episode.
func (r *PostgresWatchRepository) EpisodeProgress(ctx context.Context, userID string, tmdbID int) ([]models.Watch, error) {
	return r.query(ctx, "episode progress", `
        SELECT `+watchColumns+`
        FROM watches
        WHERE user_id = $1 AND tmdb_id = $2 AND media_type = 'tv'
        ORDER BY season ASC NULLS FIRST, episode ASC NULLS FIRST
    `, userID, tmdbID)
}

func (r *PostgresWatchRepository) query(ctx context.Context, what, sql string, args ...any) ([]models.Watch, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	watches := []models.Watch{}
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		watches = append(watches, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}

	return watches, nil
}

func scanWatch(row pgx.Row) (models.Watch, error) {
	var w models.Watch
	err := row.Scan(&w.ID, &w.UserID, &w.MediaType, &w.TMDBID, &w.Title, &w.Poster, &w.Genres,
		&w.Season, &w.Episode, &w.Rating, &w.WatchedAt, &w.CreatedAt)
	return w, err
}

// CurrentlyWatching aggregates tv watches per show. The view is derived from
// the raw rows on every call.
func (r *PostgresWatchRepository) CurrentlyWatching(ctx context.Context, userID string) ([]models.ShowProgress, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT tmdb_id,
               (array_agg(title ORDER BY created_at, id))[1],
               (array_agg(poster ORDER BY created_at, id))[1],
               MAX(season),
               MAX(episode),
               MAX(watched_at),
               COUNT(*)
        FROM watches
        WHERE user_id = $1 AND media_type = 'tv'
        GROUP BY tmdb_id
        ORDER BY MAX(watched_at) DESC, tmdb_id
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query currently watching: %w", err)
	}
	defer rows.Close()

	shows := []models.ShowProgress{}
	for rows.Next() {
		var p models.ShowProgress
		if err := rows.Scan(&p.TMDBID, &p.Title, &p.Poster, &p.MaxSeason, &p.MaxEpisode, &p.LastWatched, &p.TotalEpisodes); err != nil {
			return nil, fmt.Errorf("scan currently watching: %w", err)
		}
		shows = append(shows, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate currently watching: %w", err)
	}

	return shows, nil
}

// keyFilter matches season and episode only when they are supplied.
const keyFilter = `
        user_id = $1 AND tmdb_id = $2 AND media_type = $3
        AND ($4::INT IS NULL OR season = $4)
        AND ($5::INT IS NULL OR episode = $5)`

// Exists reports whether any watch matches the key.
func (r *PostgresWatchRepository) Exists(ctx context.Context, userID string, key models.WatchKey) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM watches WHERE`+keyFilter+`)`,
		userID, key.TMDBID, key.MediaType, key.Season, key.Episode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check watch: %w", err)
	}

	return exists, nil
}

// DeleteByID removes a watch owned by the user.
func (r *PostgresWatchRepository) DeleteByID(ctx context.Context, userID, watchID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM watches WHERE id = $1 AND user_id = $2`, watchID, userID)
	if err != nil {
		return fmt.Errorf("delete watch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteByKey removes the most recently watched record matching the key.
func (r *PostgresWatchRepository) DeleteByKey(ctx context.Context, userID string, key models.WatchKey) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM watches
        WHERE id IN (
            SELECT id FROM watches
            WHERE`+keyFilter+`
            ORDER BY watched_at DESC
            LIMIT 1
        )
    `, userID, key.TMDBID, key.MediaType, key.Season, key.Episode)
	if err != nil {
		return fmt.Errorf("delete watch by key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ WatchRepository = (*PostgresWatchRepository)(nil)
