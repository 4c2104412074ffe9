package models

// MediaTotals is the raw count pair for one media type.
type MediaTotals struct {
	Count  int
	Unique int
}

// MovieStats summarises movie watches.
type MovieStats struct {
	TotalMovies  int `json:"totalMovies"`
	UniqueMovies int `json:"uniqueMovies"`
	TotalTime    int `json:"totalTime"`
}

// TVStats summarises episode watches.
type TVStats struct {
	TotalEpisodes int `json:"totalEpisodes"`
	UniqueShows   int `json:"uniqueShows"`
	TotalTime     int `json:"totalTime"`
}

// GenreCount is one row of a genre leaderboard. MediaType is empty for
// leaderboards that do not split by media type.
type GenreCount struct {
	Genre     string `json:"genre"`
	MediaType string `json:"mediaType,omitempty"`
	Count     int    `json:"count"`
}

// Marathon is a show ranked by the number of watched episodes.
type Marathon struct {
	TMDBID       int    `json:"tmdbId"`
	Title        string `json:"title"`
	EpisodeCount int    `json:"episodeCount"`
}

// DayCount is one heatmap cell. Date is formatted as YYYY-MM-DD.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// OverallStats combines movie and TV time.
type OverallStats struct {
	TotalTime  int `json:"totalTime"`
	TotalDays  int `json:"totalDays"`
	TotalHours int `json:"totalHours"`
	TotalItems int `json:"totalItems"`
}

// UserStats is the composite report returned by GET /api/stats.
type UserStats struct {
	Movies           MovieStats   `json:"movies"`
	TV               TVStats      `json:"tv"`
	RecentActivity   int          `json:"recentActivity"`
	TopGenres        []GenreCount `json:"topGenres"`
	BiggestMarathons []Marathon   `json:"biggestMarathons"`
	ActivityHeatmap  []DayCount   `json:"activityHeatmap"`
	Overall          OverallStats `json:"overall"`
}

// GroupStats is the membership-scoped genre report for a group.
type GroupStats struct {
	TopGenres    []GenreCount `json:"topGenres"`
	TotalWatches int          `json:"totalWatches"`
}
