package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvtracker/backend/internal/models"
)

type stubStore struct {
	totals    map[string]models.MediaTotals
	recent    int
	genres    []models.GenreCount
	marathons []models.Marathon
	heatmap   []models.DayCount

	heatmapErr error

	gotSince    time.Time
	gotTimeZone string
	gotGenreCap int
	gotMarCap   int
}

func (s *stubStore) MediaTotals(_ context.Context, _ string, mediaType string) (models.MediaTotals, error) {
	return s.totals[mediaType], nil
}

func (s *stubStore) CountSince(_ context.Context, _ string, since time.Time) (int, error) {
	s.gotSince = since
	return s.recent, nil
}

func (s *stubStore) TopGenres(_ context.Context, _ string, limit int) ([]models.GenreCount, error) {
	s.gotGenreCap = limit
	return s.genres, nil
}

func (s *stubStore) Marathons(_ context.Context, _ string, limit int) ([]models.Marathon, error) {
	s.gotMarCap = limit
	return s.marathons, nil
}

func (s *stubStore) Heatmap(ctx context.Context, _ string, timeZone string) ([]models.DayCount, error) {
	s.gotTimeZone = timeZone
	if s.heatmapErr != nil {
		return nil, s.heatmapErr
	}
	return s.heatmap, nil
}

func TestComputeCombinesAggregations(t *testing.T) {
	store := &stubStore{
		totals: map[string]models.MediaTotals{
			models.MediaTypeMovie: {Count: 3, Unique: 2},
			models.MediaTypeTV:    {Count: 10, Unique: 1},
		},
		recent:    4,
		genres:    []models.GenreCount{{Genre: "Drama", MediaType: models.MediaTypeTV, Count: 10}},
		marathons: []models.Marathon{{TMDBID: 1399, Title: "Game of Thrones", EpisodeCount: 10}},
		heatmap:   []models.DayCount{{Date: "2024-03-01", Count: 13}},
	}
	engine := NewEngine(store, Config{})
	now := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	report, err := engine.Compute(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, models.MovieStats{TotalMovies: 3, UniqueMovies: 2, TotalTime: 360}, report.Movies)
	assert.Equal(t, models.TVStats{TotalEpisodes: 10, UniqueShows: 1, TotalTime: 450}, report.TV)
	assert.Equal(t, 4, report.RecentActivity)
	assert.Equal(t, models.OverallStats{TotalTime: 810, TotalDays: 0, TotalHours: 13, TotalItems: 3}, report.Overall)
	assert.Equal(t, store.genres, report.TopGenres)
	assert.Equal(t, store.marathons, report.BiggestMarathons)
	assert.Equal(t, store.heatmap, report.ActivityHeatmap)

	assert.Equal(t, now.Add(-7*24*time.Hour), store.gotSince)
	assert.Equal(t, "UTC", store.gotTimeZone)
	assert.Equal(t, 10, store.gotGenreCap)
	assert.Equal(t, 5, store.gotMarCap)
}

func TestComputeEmptyHistory(t *testing.T) {
	engine := NewEngine(&stubStore{}, DefaultConfig())

	report, err := engine.Compute(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Zero(t, report.Movies.TotalMovies)
	assert.Zero(t, report.Overall.TotalTime)
	assert.NotNil(t, report.TopGenres)
	assert.NotNil(t, report.BiggestMarathons)
	assert.NotNil(t, report.ActivityHeatmap)
}

func TestComputeFailsWhenAnyAggregationFails(t *testing.T) {
	boom := errors.New("connection refused")
	store := &stubStore{heatmapErr: boom}
	engine := NewEngine(store, Config{TimeZone: "Europe/Berlin"})

	report, err := engine.Compute(context.Background(), "user-1")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "activity heatmap")
	assert.Equal(t, models.UserStats{}, report)
	assert.Equal(t, "Europe/Berlin", store.gotTimeZone)
}

func TestOverallUsesFloorDivision(t *testing.T) {
	tests := []struct {
		name   string
		movies models.MovieStats
		tv     models.TVStats
		want   models.OverallStats
	}{
		{
			name:   "exactly one day",
			movies: models.MovieStats{UniqueMovies: 12, TotalTime: 1440},
			want:   models.OverallStats{TotalTime: 1440, TotalDays: 1, TotalHours: 24, TotalItems: 12},
		},
		{
			name:   "just under a day",
			movies: models.MovieStats{UniqueMovies: 1, TotalTime: 120},
			tv:     models.TVStats{UniqueShows: 3, TotalTime: 1305},
			want:   models.OverallStats{TotalTime: 1425, TotalDays: 0, TotalHours: 23, TotalItems: 4},
		},
		{
			name: "nothing watched",
			want: models.OverallStats{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, overall(tc.movies, tc.tv))
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{MovieMinutes: 100}.withDefaults()
	assert.Equal(t, 100, cfg.MovieMinutes)
	assert.Equal(t, 45, cfg.EpisodeMinutes)
	assert.Equal(t, 7*24*time.Hour, cfg.RecentWindow)
	assert.Equal(t, "UTC", cfg.TimeZone)
}
