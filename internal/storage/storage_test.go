package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvtracker/backend/internal/validation"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type recordingStore struct {
	calls       int
	key         string
	contentType string
	body        []byte
	err         error
}

func (s *recordingStore) Save(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.key, s.contentType, s.body = key, contentType, body
	return "https://cdn.example.com/" + key, nil
}

func TestAvatarUploaderStoresImages(t *testing.T) {
	store := &recordingStore{}
	uploader := NewAvatarUploader(store, 1024)
	uploader.newKey = func(ext string) string { return "avatars/fixed" + ext }

	url, err := uploader.Upload(context.Background(), bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/avatars/fixed.png", url)
	assert.Equal(t, "image/png", store.contentType)
	assert.Equal(t, pngHeader, store.body)
}

func TestAvatarUploaderRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: nil},
		{name: "not an image", body: []byte("hello, this is plain text")},
		{name: "too large", body: append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &recordingStore{}
			uploader := NewAvatarUploader(store, int64(len(pngHeader)+10))

			_, err := uploader.Upload(context.Background(), bytes.NewReader(tc.body))
			require.Error(t, err)
			assert.True(t, validation.IsValidationError(err), "expected validation error, got %v", err)
			assert.Zero(t, store.calls)
		})
	}
}

func TestAvatarUploaderDefaultsLimit(t *testing.T) {
	uploader := NewAvatarUploader(&recordingStore{}, 0)
	assert.Equal(t, DefaultMaxAvatarBytes, uploader.MaxBytes())
}

func TestBreakerStoreOpensAfterFailures(t *testing.T) {
	failing := &recordingStore{err: errors.New("503 slow down")}
	breaker := NewBreakerStore(failing, BreakerConfig{
		Name:             "test-object-store",
		FailureThreshold: 2,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Hour,
	})

	for i := 0; i < 2; i++ {
		_, err := breaker.Save(context.Background(), "k", "image/png", strings.NewReader("x"))
		require.ErrorIs(t, err, failing.err)
	}
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	_, err := breaker.Save(context.Background(), "k", "image/png", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, failing.calls)
}

func TestBreakerStorePassesThrough(t *testing.T) {
	store := &recordingStore{}
	breaker := NewBreakerStore(store, DefaultBreakerConfig())

	url, err := breaker.Save(context.Background(), "avatars/a.png", "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/a.png", url)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}
