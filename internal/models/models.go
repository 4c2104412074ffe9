package models

import "time"

// Media types shared by watches, watchlist entries, and chat media attachments.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// Chat message types.
const (
	MessageTypeText  = "text"
	MessageTypeMedia = "media"
)

// User represents an account within tvtracker.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Watch is an immutable log entry asserting that a user watched a movie or a
// single TV episode. Season and Episode are nil for movies.
type Watch struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	MediaType string    `json:"mediaType"`
	TMDBID    int       `json:"tmdbId"`
	Title     string    `json:"title"`
	Poster    string    `json:"poster,omitempty"`
	Genres    []string  `json:"genres"`
	Season    *int      `json:"season"`
	Episode   *int      `json:"episode"`
	Rating    *int      `json:"rating"`
	WatchedAt time.Time `json:"watchedAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// WatchKey identifies watch records by their natural key. Season and Episode
// only participate in matching when non-nil.
type WatchKey struct {
	TMDBID    int
	MediaType string
	Season    *int
	Episode   *int
}

// ShowProgress is the derived "currently watching" summary for one show.
type ShowProgress struct {
	TMDBID        int       `json:"tmdbId"`
	Title         string    `json:"title"`
	Poster        string    `json:"poster,omitempty"`
	MaxSeason     *int      `json:"maxSeason"`
	MaxEpisode    *int      `json:"maxEpisode"`
	LastWatched   time.Time `json:"lastWatched"`
	TotalEpisodes int       `json:"totalEpisodes"`
}

// WatchlistItem records a user's intent to watch a title.
type WatchlistItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	TMDBID    int       `json:"tmdbId"`
	MediaType string    `json:"mediaType"`
	Title     string    `json:"title"`
	Poster    string    `json:"poster,omitempty"`
	Year      *int      `json:"year,omitempty"`
	Overview  string    `json:"overview,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Group is an interest-based chat group. Members always contains AdminID.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Genres      []string  `json:"genres"`
	Members     []string  `json:"members"`
	AdminID     string    `json:"admin"`
	Avatar      string    `json:"groupAvatar"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MediaAttachment references a title shared inside a chat message.
type MediaAttachment struct {
	TMDBID    int    `json:"tmdbId"`
	Title     string `json:"title"`
	Poster    string `json:"poster,omitempty"`
	MediaType string `json:"mediaType"`
}

// ChatMessage is an append-only message posted to a group.
type ChatMessage struct {
	ID             string           `json:"id"`
	GroupID        string           `json:"group"`
	SenderID       string           `json:"sender"`
	SenderUsername string           `json:"senderUsername,omitempty"`
	MessageType    string           `json:"messageType"`
	Content        string           `json:"content"`
	MediaData      *MediaAttachment `json:"mediaData,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
