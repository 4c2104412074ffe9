package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tvtracker/backend/internal/auth"
	"github.com/tvtracker/backend/internal/groups"
	"github.com/tvtracker/backend/internal/logging"
	"github.com/tvtracker/backend/internal/repositories"
	"github.com/tvtracker/backend/internal/storage"
	"github.com/tvtracker/backend/internal/validation"
)

const maxJSONBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondMessage(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, messageResponse{Message: message})
}

// respondError maps service errors onto HTTP statuses. Unclassified errors
// are logged and answered with a generic 500.
func respondError(ctx context.Context, w http.ResponseWriter, err error, action string) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		respondMessage(ctx, w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, repositories.ErrConflict):
		respondMessage(ctx, w, http.StatusBadRequest, action+": already exists")
	case errors.Is(err, groups.ErrAlreadyMember):
		respondMessage(ctx, w, http.StatusBadRequest, "already a member of this group")
	case errors.Is(err, repositories.ErrNotFound):
		respondMessage(ctx, w, http.StatusNotFound, action+": not found")
	case errors.Is(err, groups.ErrForbidden):
		respondMessage(ctx, w, http.StatusForbidden, "not a member of this group")
	case errors.Is(err, storage.ErrUnavailable):
		respondMessage(ctx, w, http.StatusServiceUnavailable, "object storage temporarily unavailable")
	case errors.Is(err, context.Canceled):
		logging.FromContext(ctx).Info("request canceled", "action", action)
	default:
		logging.FromContext(ctx).Error(action+" failed", "error", err)
		respondMessage(ctx, w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.New("body", "request body is required")
		}
		return validation.New("body", "invalid request body")
	}
	return nil
}

// currentUser returns the authenticated caller or answers 401.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondMessage(r.Context(), w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, validation.New(name, name+" must be a positive integer")
	}
	return v, nil
}

func queryOptionalInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, validation.New(name, name+" must be a non-negative integer")
	}
	return &v, nil
}
