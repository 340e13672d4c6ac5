package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"melodygram/core/share"
	"melodygram/logger"
	"melodygram/model"
)

// CreateShareHandler publishes a completed song under a fresh share ID.
func (h *APIHandler) CreateShareHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VideoURL == "" || req.Title == "" {
		respondError(w, http.StatusBadRequest, "videoUrl and title are required")
		return
	}

	rec := h.shares.Create(req)
	logger.Info("Share created",
		logger.Int64("userId", userID),
		logger.String("shareId", rec.ID))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"shareId":   rec.ID,
		"shareUrl":  fmt.Sprintf("%s/share/%s", h.cfg.PublicBaseURL, rec.ID),
		"expiresAt": rec.ExpiresAt,
	})
}

// shareID accepts the id as a path variable (the /share/{id} page route) or
// as an ?id= query parameter (the /api/share route).
func shareID(r *http.Request) string {
	if id := mux.Vars(r)["id"]; id != "" {
		return id
	}
	return r.URL.Query().Get("id")
}

// GetShareHandler serves a share page payload. Unauthenticated: share links
// travel in chat apps and emails. An expired share answers 410 exactly once,
// then 404.
func (h *APIHandler) GetShareHandler(w http.ResponseWriter, r *http.Request) {
	id := shareID(r)
	rec, err := h.shares.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, share.ErrExpired):
			respondError(w, http.StatusGone, "This share link has expired")
		case errors.Is(err, share.ErrNotFound):
			respondError(w, http.StatusNotFound, "Share not found")
		default:
			respondError(w, http.StatusInternalServerError, "Failed to load share")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
	})
}

// DeleteShareHandler revokes a share link.
func (h *APIHandler) DeleteShareHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := GetUserIDFromContext(r.Context()); err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := shareID(r)
	if err := h.shares.Delete(id); err != nil {
		respondError(w, http.StatusNotFound, "Share not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
