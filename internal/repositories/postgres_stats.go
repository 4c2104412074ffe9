package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/tvtracker/backend/internal/db"
	"github.com/tvtracker/backend/internal/models"
)

// StatsRepository exposes the aggregations behind user and group statistics.
type StatsRepository interface {
	MediaTotals(ctx context.Context, userID, mediaType string) (models.MediaTotals, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	TopGenres(ctx context.Context, userID string, limit int) ([]models.GenreCount, error)
	Marathons(ctx context.Context, userID string, limit int) ([]models.Marathon, error)
	Heatmap(ctx context.Context, userID, timeZone string) ([]models.DayCount, error)
	GroupTopGenres(ctx context.Context, groupID string, limit int) ([]models.GenreCount, error)
	GroupWatchCount(ctx context.Context, groupID string) (int, error)
}

// PostgresStatsRepository runs statistics aggregations in SQL.
type PostgresStatsRepository struct {
	pool db.Pool
}

// NewPostgresStatsRepository constructs a stats repository backed by PostgreSQL.
func NewPostgresStatsRepository(pool db.Pool) *PostgresStatsRepository {
	return &PostgresStatsRepository{pool: pool}
}

// MediaTotals counts watches of one media type and the distinct titles among them.
func (r *PostgresStatsRepository) MediaTotals(ctx context.Context, userID, mediaType string) (models.MediaTotals, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.MediaTotals{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var totals models.MediaTotals
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*), COUNT(DISTINCT tmdb_id)
        FROM watches
        WHERE user_id = $1 AND media_type = $2
    `, userID, mediaType).Scan(&totals.Count, &totals.Unique)
	if err != nil {
		return models.MediaTotals{}, fmt.Errorf("count %s watches: %w", mediaType, err)
	}

	return totals, nil
}

// CountSince counts watch events at or after since.
func (r *PostgresStatsRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM watches WHERE user_id = $1 AND watched_at >= $2
    `, userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent watches: %w", err)
	}

	return count, nil
}

// TopGenres flattens genres into (genre, media type) rows and ranks them by count.
func (r *PostgresStatsRepository) TopGenres(ctx context.Context, userID string, limit int) ([]models.GenreCount, error) {
	return r.genreCounts(ctx, `
        SELECT g.genre, g.media_type, COUNT(*)
        FROM (
            SELECT unnest(genres) AS genre, media_type
            FROM watches
            WHERE user_id = $1
        ) g
        GROUP BY g.genre, g.media_type
        ORDER BY COUNT(*) DESC, g.genre, g.media_type
        LIMIT $2
    `, userID, limit)
}

// GroupTopGenres ranks genres across the watches of every current member.
func (r *PostgresStatsRepository) GroupTopGenres(ctx context.Context, groupID string, limit int) ([]models.GenreCount, error) {
	return r.genreCounts(ctx, `
        SELECT g.genre, '', COUNT(*)
        FROM (
            SELECT unnest(w.genres) AS genre
            FROM watches w
            JOIN group_members m ON m.user_id = w.user_id
            WHERE m.group_id = $1
        ) g
        GROUP BY g.genre
        ORDER BY COUNT(*) DESC, g.genre
        LIMIT $2
    `, groupID, limit)
}

func (r *PostgresStatsRepository) genreCounts(ctx context.Context, query, key string, limit int) ([]models.GenreCount, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, key, limit)
	if err != nil {
		return nil, fmt.Errorf("query genre counts: %w", err)
	}
	defer rows.Close()

	genres := []models.GenreCount{}
	for rows.Next() {
		var g models.GenreCount
		if err := rows.Scan(&g.Genre, &g.MediaType, &g.Count); err != nil {
			return nil, fmt.Errorf("scan genre count: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genre counts: %w", err)
	}

	return genres, nil
}

// GroupWatchCount counts watches across every current member.
func (r *PostgresStatsRepository) GroupWatchCount(ctx context.Context, groupID string) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM watches w
        JOIN group_members m ON m.user_id = w.user_id
        WHERE m.group_id = $1
    `, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count group watches: %w", err)
	}

	return count, nil
}

// Marathons ranks shows by watched episode count, labelled with the first-seen title.
func (r *PostgresStatsRepository) Marathons(ctx context.Context, userID string, limit int) ([]models.Marathon, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT tmdb_id, (array_agg(title ORDER BY created_at, id))[1], COUNT(*)
        FROM watches
        WHERE user_id = $1 AND media_type = 'tv'
        GROUP BY tmdb_id
        ORDER BY COUNT(*) DESC, tmdb_id
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query marathons: %w", err)
	}
	defer rows.Close()

	marathons := []models.Marathon{}
	for rows.Next() {
		var m models.Marathon
		if err := rows.Scan(&m.TMDBID, &m.Title, &m.EpisodeCount); err != nil {
			return nil, fmt.Errorf("scan marathon: %w", err)
		}
		marathons = append(marathons, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marathons: %w", err)
	}

	return marathons, nil
}

// Heatmap counts watches per calendar day in the given IANA time zone, ascending.
func (r *PostgresStatsRepository) Heatmap(ctx context.Context, userID, timeZone string) ([]models.DayCount, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT (watched_at AT TIME ZONE $2)::DATE AS day, COUNT(*)
        FROM watches
        WHERE user_id = $1
        GROUP BY day
        ORDER BY day
    `, userID, timeZone)
	if err != nil {
		return nil, fmt.Errorf("query heatmap: %w", err)
	}
	defer rows.Close()

	days := []models.DayCount{}
	for rows.Next() {
		var (
			day   time.Time
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan heatmap day: %w", err)
		}
		days = append(days, models.DayCount{Date: day.Format(time.DateOnly), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heatmap: %w", err)
	}

	return days, nil
}

var _ StatsRepository = (*PostgresStatsRepository)(nil)
