// Package stats computes per-user viewing statistics. Every report is derived
// from the raw watch rows at request time; nothing is cached.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/tvtracker/backend/internal/logging"
	"github.com/tvtracker/backend/internal/metrics"
	"github.com/tvtracker/backend/internal/models"
)

const (
	minutesPerDay  = 1440
	minutesPerHour = 60
)

// Store provides the aggregations a report is assembled from.
type Store interface {
	MediaTotals(ctx context.Context, userID, mediaType string) (models.MediaTotals, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	TopGenres(ctx context.Context, userID string, limit int) ([]models.GenreCount, error)
	Marathons(ctx context.Context, userID string, limit int) ([]models.Marathon, error)
	Heatmap(ctx context.Context, userID, timeZone string) ([]models.DayCount, error)
}

// Config holds the constants used while computing a report.
type Config struct {
	MovieMinutes   int
	EpisodeMinutes int
	RecentWindow   time.Duration
	TimeZone       string
	TopGenres      int
	Marathons      int
}

// DefaultConfig returns the standard constants: two hours per movie, 45 minutes
// per episode, a seven day activity window and UTC calendar days.
func DefaultConfig() Config {
	return Config{
		MovieMinutes:   120,
		EpisodeMinutes: 45,
		RecentWindow:   7 * 24 * time.Hour,
		TimeZone:       "UTC",
		TopGenres:      10,
		Marathons:      5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MovieMinutes <= 0 {
		c.MovieMinutes = d.MovieMinutes
	}
	if c.EpisodeMinutes <= 0 {
		c.EpisodeMinutes = d.EpisodeMinutes
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.TimeZone == "" {
		c.TimeZone = d.TimeZone
	}
	if c.TopGenres <= 0 {
		c.TopGenres = d.TopGenres
	}
	if c.Marathons <= 0 {
		c.Marathons = d.Marathons
	}
	return c
}

// Engine assembles user statistics reports.
type Engine struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// NewEngine constructs an Engine. Zero config fields fall back to DefaultConfig.
func NewEngine(store Store, cfg Config) *Engine {
	return &Engine{
		store: store,
		cfg:   cfg.withDefaults(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Compute runs the sub-aggregations concurrently and combines them into one
// report. The first failing aggregation cancels the rest and fails the report.
func (e *Engine) Compute(ctx context.Context, userID string) (models.UserStats, error) {
	ctx, span := logging.StartSpan(ctx, "stats.compute")
	start := e.now()

	var (
		movies   models.MediaTotals
		episodes models.MediaTotals
		recent   int
		genres   []models.GenreCount
		marathon []models.Marathon
		heatmap  []models.DayCount
	)

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		movies, err = e.store.MediaTotals(ctx, userID, models.MediaTypeMovie)
		return wrap("movie totals", err)
	})
	p.Go(func(ctx context.Context) error {
		var err error
		episodes, err = e.store.MediaTotals(ctx, userID, models.MediaTypeTV)
		return wrap("tv totals", err)
	})
	p.Go(func(ctx context.Context) error {
		var err error
		recent, err = e.store.CountSince(ctx, userID, start.Add(-e.cfg.RecentWindow))
		return wrap("recent activity", err)
	})
	p.Go(func(ctx context.Context) error {
		var err error
		genres, err = e.store.TopGenres(ctx, userID, e.cfg.TopGenres)
		return wrap("top genres", err)
	})
	p.Go(func(ctx context.Context) error {
		var err error
		marathon, err = e.store.Marathons(ctx, userID, e.cfg.Marathons)
		return wrap("marathons", err)
	})
	p.Go(func(ctx context.Context) error {
		var err error
		heatmap, err = e.store.Heatmap(ctx, userID, e.cfg.TimeZone)
		return wrap("activity heatmap", err)
	})

	err := p.Wait()
	metrics.StatsComputeDuration.Observe(span.Duration().Seconds())
	if err != nil {
		metrics.StatsComputeErrors.Inc()
		span.Fail(err)
		return models.UserStats{}, err
	}
	span.End()

	report := models.UserStats{
		Movies: models.MovieStats{
			TotalMovies:  movies.Count,
			UniqueMovies: movies.Unique,
			TotalTime:    movies.Count * e.cfg.MovieMinutes,
		},
		TV: models.TVStats{
			TotalEpisodes: episodes.Count,
			UniqueShows:   episodes.Unique,
			TotalTime:     episodes.Count * e.cfg.EpisodeMinutes,
		},
		RecentActivity:   recent,
		TopGenres:        nonNil(genres),
		BiggestMarathons: nonNil(marathon),
		ActivityHeatmap:  nonNil(heatmap),
	}
	report.Overall = overall(report.Movies, report.TV)

	return report, nil
}

func overall(movies models.MovieStats, tv models.TVStats) models.OverallStats {
	total := movies.TotalTime + tv.TotalTime
	return models.OverallStats{
		TotalTime:  total,
		TotalDays:  total / minutesPerDay,
		TotalHours: total / minutesPerHour,
		TotalItems: movies.UniqueMovies + tv.UniqueShows,
	}
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
