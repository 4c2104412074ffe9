// Package storage uploads group avatars to object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/tvtracker/backend/internal/metrics"
	"github.com/tvtracker/backend/internal/validation"
)

// DefaultMaxAvatarBytes caps avatar uploads when no limit is configured.
const DefaultMaxAvatarBytes int64 = 2 << 20

// ObjectStore persists a blob under key and returns its public URL.
type ObjectStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// AvatarUploader validates avatar images and hands them to an ObjectStore.
type AvatarUploader struct {
	store    ObjectStore
	maxBytes int64
	newKey   func(ext string) string
}

// NewAvatarUploader constructs an uploader. A non-positive maxBytes falls back
// to DefaultMaxAvatarBytes.
func NewAvatarUploader(store ObjectStore, maxBytes int64) *AvatarUploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAvatarBytes
	}
	return &AvatarUploader{
		store:    store,
		maxBytes: maxBytes,
		newKey: func(ext string) string {
			return "avatars/" + uuid.NewString() + ext
		},
	}
}

// MaxBytes reports the configured size cap.
func (u *AvatarUploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload reads the image, checks its size and sniffed content type, and stores it.
func (u *AvatarUploader) Upload(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if len(data) == 0 {
		metrics.AvatarUploads.WithLabelValues("rejected").Inc()
		return "", validation.New("avatar", "avatar is required")
	}
	if int64(len(data)) > u.maxBytes {
		metrics.AvatarUploads.WithLabelValues("rejected").Inc()
		return "", validation.New("avatar", fmt.Sprintf("avatar must be at most %d bytes", u.maxBytes))
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		metrics.AvatarUploads.WithLabelValues("rejected").Inc()
		return "", validation.New("avatar", "avatar must be an image, got "+mtype.String())
	}

	url, err := u.store.Save(ctx, u.newKey(mtype.Extension()), mtype.String(), bytes.NewReader(data))
	if err != nil {
		metrics.AvatarUploads.WithLabelValues("failure").Inc()
		return "", err
	}

	metrics.AvatarUploads.WithLabelValues("success").Inc()
	return url, nil
}
