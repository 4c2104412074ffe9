package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tvtracker/backend/internal/groups"
	"github.com/tvtracker/backend/internal/models"
	"github.com/tvtracker/backend/internal/repositories"
	"github.com/tvtracker/backend/internal/tracker"
	"github.com/tvtracker/backend/internal/validation"
)

type stubWatchService struct {
	recordErr  error
	removedKey *models.WatchKey
	removedID  string
	checkedKey models.WatchKey
}

func (s *stubWatchService) RecordWatch(_ context.Context, userID string, in tracker.RecordWatchInput) (models.Watch, error) {
	if s.recordErr != nil {
		return models.Watch{}, s.recordErr
	}
	return models.Watch{ID: "watch-1", UserID: userID, MediaType: in.MediaType, TMDBID: in.TMDBID, Title: in.Title}, nil
}

func (s *stubWatchService) RecentMovies(context.Context, string) ([]models.Watch, error) {
	return []models.Watch{}, nil
}

func (s *stubWatchService) CurrentlyWatching(context.Context, string) ([]models.ShowProgress, error) {
	return []models.ShowProgress{}, nil
}

func (s *stubWatchService) EpisodeProgress(_ context.Context, _ string, tmdbID int) ([]models.Watch, error) {
	return []models.Watch{{TMDBID: tmdbID}}, nil
}

func (s *stubWatchService) IsWatched(_ context.Context, _ string, key models.WatchKey) (bool, error) {
	s.checkedKey = key
	return key.Season != nil, nil
}

func (s *stubWatchService) RemoveByID(_ context.Context, _ string, watchID string) error {
	s.removedID = watchID
	if watchID == "missing" {
		return repositories.ErrNotFound
	}
	return nil
}

func (s *stubWatchService) RemoveByKey(_ context.Context, _ string, key models.WatchKey) error {
	s.removedKey = &key
	return nil
}

type stubWatchlistService struct{}

func (stubWatchlistService) Add(_ context.Context, userID string, in tracker.AddWatchlistInput) (models.WatchlistItem, error) {
	return models.WatchlistItem{ID: "item-1", UserID: userID, TMDBID: in.TMDBID, MediaType: in.MediaType}, nil
}

func (stubWatchlistService) List(_ context.Context, _ string, filter string) ([]models.WatchlistItem, error) {
	if filter != "" && filter != "all" && filter != "movie" && filter != "tv" {
		return nil, validation.New("type", "type must be one of: all movie tv")
	}
	return []models.WatchlistItem{}, nil
}

func (stubWatchlistService) Remove(context.Context, string, int, string) error {
	return repositories.ErrNotFound
}

func (stubWatchlistService) Contains(_ context.Context, _ string, tmdbID int, _ string) (bool, error) {
	return tmdbID == 1, nil
}

type stubStatsEngine struct {
	err error
}

func (s stubStatsEngine) Compute(context.Context, string) (models.UserStats, error) {
	if s.err != nil {
		return models.UserStats{}, s.err
	}
	return models.UserStats{RecentActivity: 3}, nil
}

type stubGroupService struct{}

func (stubGroupService) Create(_ context.Context, creatorID string, in groups.CreateGroupInput) (models.Group, error) {
	return models.Group{ID: "group-1", Name: in.Name, AdminID: creatorID, Members: []string{creatorID}}, nil
}

func (stubGroupService) ListForUser(context.Context, string) ([]models.Group, error) {
	return []models.Group{}, nil
}

func (stubGroupService) Join(_ context.Context, _ string, groupID string) (models.Group, error) {
	switch groupID {
	case "missing":
		return models.Group{}, repositories.ErrNotFound
	case "joined":
		return models.Group{}, groups.ErrAlreadyMember
	}
	return models.Group{ID: groupID}, nil
}

func (stubGroupService) GenreStats(_ context.Context, _ string, groupID string) (models.GroupStats, error) {
	if groupID != "mine" {
		return models.GroupStats{}, groups.ErrForbidden
	}
	return models.GroupStats{TopGenres: []models.GenreCount{}, TotalWatches: 2}, nil
}

func (stubGroupService) PostMessage(_ context.Context, senderID, groupID string, in groups.PostMessageInput) (models.ChatMessage, error) {
	if groupID != "mine" {
		return models.ChatMessage{}, groups.ErrForbidden
	}
	return models.ChatMessage{ID: "msg-1", GroupID: groupID, SenderID: senderID, Content: in.Content, MessageType: models.MessageTypeText}, nil
}

func (stubGroupService) ListMessages(_ context.Context, _ string, groupID string) ([]models.ChatMessage, error) {
	if groupID != "mine" {
		return nil, groups.ErrForbidden
	}
	return []models.ChatMessage{}, nil
}

type stubAvatarUploader struct {
	got []byte
}

func (s *stubAvatarUploader) Upload(_ context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.got = data
	return "https://cdn.example.com/avatars/a.png", nil
}

func (s *stubAvatarUploader) MaxBytes() int64 { return 1024 }

type apiFixture struct {
	router  http.Handler
	token   string
	watches *stubWatchService
}

func newAPIFixture(t *testing.T, stats StatsEngine, avatars AvatarUploader) apiFixture {
	t.Helper()
	sessions := newTestSessions()
	tokens, err := sessions.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	watches := &stubWatchService{}
	deps := Dependencies{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Users:     newInMemoryUserStore(),
		Sessions:  sessions,
		Watches:   watches,
		Watchlist: stubWatchlistService{},
		Stats:     stats,
		Groups:    stubGroupService{},
	}
	if avatars != nil {
		deps.Avatars = avatars
	}

	return apiFixture{router: NewRouter(deps), token: tokens.AccessToken, watches: watches}
}

func (f apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRouterRequiresAuthentication(t *testing.T) {
	fixture := newAPIFixture(t, stubStatsEngine{}, nil)

	for _, path := range []string{"/api/watch", "/api/watchlist", "/api/stats", "/api/groups", "/api/chat/mine", "/api/auth/me"} {
		rec := httptest.NewRecorder()
		fixture.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200 got %d", rec.Code)
	}
}

func TestRouterStatusMapping(t *testing.T) {
	fixture := newAPIFixture(t, stubStatsEngine{}, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{name: "record watch", method: http.MethodPost, path: "/api/watch", body: map[string]any{"mediaType": "movie", "tmdbId": 603, "title": "The Matrix"}, wantStatus: http.StatusCreated},
		{name: "recent movies", method: http.MethodGet, path: "/api/watch", wantStatus: http.StatusOK},
		{name: "currently watching", method: http.MethodGet, path: "/api/watch/currently-watching", wantStatus: http.StatusOK},
		{name: "progress", method: http.MethodGet, path: "/api/watch/progress/1399", wantStatus: http.StatusOK},
		{name: "progress bad id", method: http.MethodGet, path: "/api/watch/progress/abc", wantStatus: http.StatusBadRequest},
		{name: "check bad season", method: http.MethodGet, path: "/api/watch/check/1399/tv?season=x", wantStatus: http.StatusBadRequest},
		{name: "remove missing id", method: http.MethodDelete, path: "/api/watch/missing", wantStatus: http.StatusNotFound},
		{name: "watchlist add", method: http.MethodPost, path: "/api/watchlist", body: map[string]any{"tmdbId": 1, "mediaType": "tv", "title": "x"}, wantStatus: http.StatusCreated},
		{name: "watchlist bad filter", method: http.MethodGet, path: "/api/watchlist?type=books", wantStatus: http.StatusBadRequest},
		{name: "watchlist remove missing", method: http.MethodDelete, path: "/api/watchlist", body: map[string]any{"tmdbId": 9, "mediaType": "tv"}, wantStatus: http.StatusNotFound},
		{name: "stats", method: http.MethodGet, path: "/api/stats", wantStatus: http.StatusOK},
		{name: "create group", method: http.MethodPost, path: "/api/groups", body: map[string]any{"name": "Sci-Fi Fans"}, wantStatus: http.StatusCreated},
		{name: "join missing group", method: http.MethodPost, path: "/api/groups/missing/join", wantStatus: http.StatusNotFound},
		{name: "join twice", method: http.MethodPost, path: "/api/groups/joined/join", wantStatus: http.StatusBadRequest},
		{name: "group stats as member", method: http.MethodGet, path: "/api/groups/mine/stats", wantStatus: http.StatusOK},
		{name: "group stats as outsider", method: http.MethodGet, path: "/api/groups/theirs/stats", wantStatus: http.StatusForbidden},
		{name: "post message", method: http.MethodPost, path: "/api/chat/mine", body: map[string]any{"content": "hi"}, wantStatus: http.StatusCreated},
		{name: "post message outsider", method: http.MethodPost, path: "/api/chat/theirs", body: map[string]any{"content": "hi"}, wantStatus: http.StatusForbidden},
		{name: "list messages outsider", method: http.MethodGet, path: "/api/chat/theirs", wantStatus: http.StatusForbidden},
		{name: "avatars disabled", method: http.MethodPost, path: "/api/groups/avatars", wantStatus: http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := fixture.do(t, tc.method, tc.path, tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if rec.Code >= http.StatusBadRequest {
				var resp messageResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Message == "" {
					t.Fatalf("expected {message} error body, got %q", rec.Body.String())
				}
			}
		})
	}
}

func TestRouterDuplicateWatchIsBadRequest(t *testing.T) {
	fixture := newAPIFixture(t, stubStatsEngine{}, nil)
	fixture.watches.recordErr = repositories.ErrConflict

	rec := fixture.do(t, http.MethodPost, "/api/watch", map[string]any{"mediaType": "movie", "tmdbId": 603, "title": "The Matrix"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRouterRemoveByKeyIsNotTreatedAsID(t *testing.T) {
	fixture := newAPIFixture(t, stubStatsEngine{}, nil)

	rec := fixture.do(t, http.MethodDelete, "/api/watch/remove", map[string]any{"tmdbId": 1399, "mediaType": "tv", "season": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if fixture.watches.removedID != "" {
		t.Fatalf("expected key removal, got id removal of %q", fixture.watches.removedID)
	}
	key := fixture.watches.removedKey
	if key == nil || key.TMDBID != 1399 || key.Season == nil || *key.Season != 1 || key.Episode != nil {
		t.Fatalf("unexpected key %+v", key)
	}
}

func TestRouterCheckPassesOptionalFields(t *testing.T) {
	fixture := newAPIFixture(t, stubStatsEngine{}, nil)

	rec := fixture.do(t, http.MethodGet, "/api/watch/check/1399/tv?season=2&episode=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["isWatched"] {
		t.Fatalf("expected isWatched true, got %v", resp)
	}
	key := fixture.watches.checkedKey
	if key.MediaType != models.MediaTypeTV || *key.Season != 2 || *key.Episode != 5 {
		t.Fatalf("unexpected key %+v", key)
	}
}

func TestRouterStatsFailureIsInternalError(t *testing.T) {
	fixture := newAPIFixture(t, stubStatsEngine{err: errors.New("marathons: connection reset")}, nil)

	rec := fixture.do(t, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Fatalf("internal error detail leaked: %s", rec.Body.String())
	}
}

func TestRouterUploadsAvatarFromMultipart(t *testing.T) {
	uploader := &stubAvatarUploader{}
	fixture := newAPIFixture(t, stubStatsEngine{}, uploader)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile("avatar", "avatar.png")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("png-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/groups/avatars", &body)
	req.Header.Set("Authorization", "Bearer "+fixture.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if string(uploader.got) != "png-bytes" {
		t.Fatalf("expected avatar part to be forwarded, got %q", uploader.got)
	}
}
