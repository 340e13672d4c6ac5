package server

import (
	"errors"
	"net/http"

	"melodygram/logger"
	"melodygram/repository"

	"github.com/gorilla/mux"
)

// GetSongsHandler lists the user's song library, newest first.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	songs, err := h.songRepo.ListByUser(userID)
	if err != nil {
		logger.Error("Failed to list songs", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to list songs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"songs":   songs,
	})
}

// GetSongHandler returns one library entry.
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	song, err := h.songRepo.GetByID(userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSongNotFound) {
			respondError(w, http.StatusNotFound, "Song not found")
			return
		}
		logger.Error("Failed to load song", logger.String("id", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load song")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"song":    song,
	})
}

// DeleteSongHandler removes a library entry. Deletion only happens on
// explicit user action; generation failures never delete records.
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.songRepo.Delete(userID, id); err != nil {
		if errors.Is(err, repository.ErrSongNotFound) {
			respondError(w, http.StatusNotFound, "Song not found")
			return
		}
		logger.Error("Failed to delete song", logger.String("id", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// PlaySongHandler increments the play counter.
func (h *APIHandler) PlaySongHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.songRepo.IncrementPlays(userID, id); err != nil {
		if errors.Is(err, repository.ErrSongNotFound) {
			respondError(w, http.StatusNotFound, "Song not found")
			return
		}
		logger.Error("Failed to count play", logger.String("id", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to count play")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
