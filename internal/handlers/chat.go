package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tvtracker/backend/internal/groups"
)

// ChatHandler exposes group chat under /api/chat.
type ChatHandler struct {
	Groups GroupService
}

// Post handles POST /api/chat/{groupId}.
func (h ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var in groups.PostMessageInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err, "message")
		return
	}

	msg, err := h.Groups.PostMessage(ctx, userID, chi.URLParam(r, "groupId"), in)
	if err != nil {
		respondError(ctx, w, err, "message")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, msg)
}

// List handles GET /api/chat/{groupId}.
func (h ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	messages, err := h.Groups.ListMessages(r.Context(), userID, chi.URLParam(r, "groupId"))
	if err != nil {
		respondError(r.Context(), w, err, "messages")
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, messages)
}
