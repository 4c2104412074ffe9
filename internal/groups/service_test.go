package groups

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvtracker/backend/internal/models"
	"github.com/tvtracker/backend/internal/repositories"
	"github.com/tvtracker/backend/internal/validation"
)

type memoryGroups struct {
	mu     sync.Mutex
	groups map[string]*models.Group
}

func newMemoryGroups() *memoryGroups {
	return &memoryGroups{groups: make(map[string]*models.Group)}
}

func (m *memoryGroups) Create(_ context.Context, group models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := group
	g.Members = append([]string(nil), group.Members...)
	m.groups[group.ID] = &g
	return nil
}

func (m *memoryGroups) FindByID(_ context.Context, groupID string) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return models.Group{}, repositories.ErrNotFound
	}
	out := *g
	out.Members = append([]string(nil), g.Members...)
	return out, nil
}

func (m *memoryGroups) ListForUser(_ context.Context, userID string) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Group{}
	for _, g := range m.groups {
		for _, member := range g.Members {
			if member == userID {
				out = append(out, *g)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memoryGroups) AddMember(_ context.Context, groupID, userID string, joinedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return repositories.ErrNotFound
	}
	for _, member := range g.Members {
		if member == userID {
			return repositories.ErrConflict
		}
	}
	g.Members = append(g.Members, userID)
	g.UpdatedAt = joinedAt
	return nil
}

func (m *memoryGroups) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return false, nil
	}
	for _, member := range g.Members {
		if member == userID {
			return true, nil
		}
	}
	return false, nil
}

type memoryMessages struct {
	mu       sync.Mutex
	messages []models.ChatMessage
}

func (m *memoryMessages) Create(_ context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.SenderUsername = "user:" + msg.SenderID
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memoryMessages) ListRecent(_ context.Context, groupID string, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inGroup []models.ChatMessage
	for _, msg := range m.messages {
		if msg.GroupID == groupID {
			inGroup = append(inGroup, msg)
		}
	}
	if len(inGroup) > limit {
		inGroup = inGroup[len(inGroup)-limit:]
	}
	return inGroup, nil
}

type stubGenres struct {
	genres []models.GenreCount
	total  int
	err    error
	calls  int
}

func (s *stubGenres) GroupTopGenres(_ context.Context, _ string, limit int) ([]models.GenreCount, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.genres) > limit {
		return s.genres[:limit], nil
	}
	return s.genres, nil
}

func (s *stubGenres) GroupWatchCount(context.Context, string) (int, error) {
	return s.total, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService() (*Service, *memoryGroups, *memoryMessages, *stubGenres) {
	groups := newMemoryGroups()
	messages := &memoryMessages{}
	genres := &stubGenres{}
	svc := NewService(groups, messages, genres)
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	svc.now = c.now
	return svc, groups, messages, genres
}

func TestSciFiFansScenario(t *testing.T) {
	ctx := context.Background()
	svc, _, _, genres := newTestService()
	genres.genres = []models.GenreCount{{Genre: "Science Fiction", Count: 4}, {Genre: "Drama", Count: 2}}
	genres.total = 6

	group, err := svc.Create(ctx, "ada", CreateGroupInput{Name: "  Sci-Fi Fans ", Genres: []string{"Science Fiction"}})
	require.NoError(t, err)
	assert.Equal(t, "Sci-Fi Fans", group.Name)
	assert.Equal(t, "ada", group.AdminID)
	assert.Equal(t, []string{"ada"}, group.Members)

	joined, err := svc.Join(ctx, "brian", group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ada", "brian"}, joined.Members)

	_, err = svc.Join(ctx, "brian", group.ID)
	require.ErrorIs(t, err, ErrAlreadyMember)

	_, err = svc.GenreStats(ctx, "carol", group.ID)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, genres.calls)

	report, err := svc.GenreStats(ctx, "brian", group.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, report.TotalWatches)
	assert.Equal(t, "Science Fiction", report.TopGenres[0].Genre)

	msg, err := svc.PostMessage(ctx, "ada", group.ID, PostMessageInput{Content: "Dune tonight?"})
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeText, msg.MessageType)
	assert.Equal(t, "user:ada", msg.SenderUsername)

	_, err = svc.PostMessage(ctx, "carol", group.ID, PostMessageInput{Content: "let me in"})
	require.ErrorIs(t, err, ErrForbidden)

	history, err := svc.ListMessages(ctx, "brian", group.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Dune tonight?", history[0].Content)

	_, err = svc.ListMessages(ctx, "carol", group.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), "ada", CreateGroupInput{Name: "   "})
	require.Error(t, err)
	assert.True(t, validation.IsValidationError(err))

	_, err = svc.Create(context.Background(), "ada", CreateGroupInput{Name: "Horror", Avatar: "not a url"})
	assert.True(t, validation.IsValidationError(err))
}

func TestJoinMissingGroup(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Join(context.Background(), "ada", "missing")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestListForUserOrdersByActivity(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	older, err := svc.Create(ctx, "ada", CreateGroupInput{Name: "Noir"})
	require.NoError(t, err)
	newer, err := svc.Create(ctx, "ada", CreateGroupInput{Name: "Anime"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "brian", CreateGroupInput{Name: "Westerns"})
	require.NoError(t, err)

	groups, err := svc.ListForUser(ctx, "ada")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, newer.ID, groups[0].ID)

	_, err = svc.Join(ctx, "brian", older.ID)
	require.NoError(t, err)

	groups, err = svc.ListForUser(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, older.ID, groups[0].ID)
}

func TestGenreStatsForMissingGroupIsForbidden(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GenreStats(context.Background(), "ada", "missing")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGenreStatsPropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, _, genres := newTestService()
	genres.err = errors.New("timeout")

	group, err := svc.Create(ctx, "ada", CreateGroupInput{Name: "Docs"})
	require.NoError(t, err)

	_, err = svc.GenreStats(ctx, "ada", group.ID)
	require.ErrorIs(t, err, genres.err)
}

func TestPostMessageRules(t *testing.T) {
	ctx := context.Background()
	svc, _, messages, _ := newTestService()

	group, err := svc.Create(ctx, "ada", CreateGroupInput{Name: "Sci-Fi Fans"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      PostMessageInput
		wantErr bool
	}{
		{name: "empty text", in: PostMessageInput{Content: "  "}, wantErr: true},
		{name: "unknown type", in: PostMessageInput{Content: "hi", MessageType: "voice"}, wantErr: true},
		{name: "media without attachment", in: PostMessageInput{MessageType: models.MessageTypeMedia}, wantErr: true},
		{name: "media with bad attachment", in: PostMessageInput{MessageType: models.MessageTypeMedia, MediaData: &models.MediaAttachment{TMDBID: 1, MediaType: "book", Title: "x"}}, wantErr: true},
		{name: "media share", in: PostMessageInput{MessageType: models.MessageTypeMedia, MediaData: &models.MediaAttachment{TMDBID: 438631, MediaType: models.MediaTypeMovie, Title: "Dune"}}},
		{name: "text", in: PostMessageInput{Content: "hello"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PostMessage(ctx, "ada", group.ID, tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, validation.IsValidationError(err), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}

	require.Len(t, messages.messages, 2)
	assert.NotNil(t, messages.messages[0].MediaData)
	assert.Nil(t, messages.messages[1].MediaData)
}

func TestListMessagesKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	group, err := svc.Create(ctx, "ada", CreateGroupInput{Name: "Chatty"})
	require.NoError(t, err)

	for i := 1; i <= MessageHistoryLimit+5; i++ {
		_, err := svc.PostMessage(ctx, "ada", group.ID, PostMessageInput{Content: fmt.Sprintf("message %d", i)})
		require.NoError(t, err)
	}

	history, err := svc.ListMessages(ctx, "ada", group.ID)
	require.NoError(t, err)
	require.Len(t, history, MessageHistoryLimit)
	assert.Equal(t, "message 6", history[0].Content)
	assert.Equal(t, fmt.Sprintf("message %d", MessageHistoryLimit+5), history[len(history)-1].Content)
	assert.True(t, history[0].CreatedAt.Before(history[1].CreatedAt))
}
