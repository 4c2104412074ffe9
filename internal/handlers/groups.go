package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tvtracker/backend/internal/groups"
	"github.com/tvtracker/backend/internal/validation"
)

// multipartOverhead leaves room for boundaries and part headers around the avatar bytes.
const multipartOverhead = 64 << 10

// GroupHandler exposes groups under /api/groups.
type GroupHandler struct {
	Groups  GroupService
	Avatars AvatarUploader
}

// Create handles POST /api/groups.
func (h GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var in groups.CreateGroupInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err, "group")
		return
	}

	group, err := h.Groups.Create(ctx, userID, in)
	if err != nil {
		respondError(ctx, w, err, "group")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, group)
}

// List handles GET /api/groups.
func (h GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.Groups.ListForUser(r.Context(), userID)
	if err != nil {
		respondError(r.Context(), w, err, "groups")
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, list)
}

// Join handles POST /api/groups/{id}/join.
func (h GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	group, err := h.Groups.Join(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err, "group")
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, group)
}

// Stats handles GET /api/groups/{id}/stats.
func (h GroupHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	report, err := h.Groups.GenreStats(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err, "group statistics")
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, report)
}

// UploadAvatar handles POST /api/groups/avatars. The image is sent either as
// the multipart field "avatar" or as the raw request body.
func (h GroupHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	ctx := r.Context()

	if h.Avatars == nil {
		respondMessage(ctx, w, http.StatusServiceUnavailable, "avatar uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Avatars.MaxBytes()+multipartOverhead)

	src, err := avatarSource(r)
	if err != nil {
		respondError(ctx, w, err, "avatar")
		return
	}

	url, err := h.Avatars.Upload(ctx, src)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondMessage(ctx, w, http.StatusBadRequest, "avatar is too large")
			return
		}
		respondError(ctx, w, err, "avatar")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"url": url})
}

func avatarSource(r *http.Request) (io.Reader, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, validation.New("avatar", "invalid multipart body")
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, validation.New("avatar", "avatar is required")
		}
		if err != nil {
			return nil, validation.New("avatar", "invalid multipart body")
		}
		if part.FormName() == "avatar" {
			return part, nil
		}
	}
}
