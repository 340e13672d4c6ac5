package server

import (
	"encoding/json"
	"net/http"

	"melodygram/core/history"
	"melodygram/logger"
	"melodygram/model"
)

// GetSessionHandler returns the user's creation session, or an empty one.
func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	session, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to load session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if session == nil {
		session = &model.CreationSession{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": session,
	})
}

// PutSessionHandler replaces the user's creation session.
func (h *APIHandler) PutSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var session model.CreationSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The gender lock invariant must hold after any session write.
	browser := history.NewBrowser(&session)
	browser.SetLock(session.GenderLock)
	browser.Apply(&session)

	if err := h.sessions.Put(r.Context(), userID, &session); err != nil {
		logger.Error("Failed to store session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to store session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": session,
	})
}

// ClearSessionHandler drops the user's creation session.
func (h *APIHandler) ClearSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.sessions.Clear(r.Context(), userID); err != nil {
		logger.Error("Failed to clear session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to clear session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// SetAudioSelectionHandler stores the clip window for the current song.
func (h *APIHandler) SetAudioSelectionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var sel model.AudioSelection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !sel.Valid() {
		respondError(w, http.StatusBadRequest, "Selection must satisfy 0 <= startTime < endTime")
		return
	}

	session, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to load session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if session == nil {
		respondError(w, http.StatusBadRequest, "No creation session")
		return
	}

	// A selection is only meaningful for the song it was made on.
	sel.SongIndex = session.SongIndex
	session.AudioSelection = &sel

	if err := h.sessions.Put(r.Context(), userID, session); err != nil {
		logger.Error("Failed to store session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to store session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"duration": sel.Duration(),
	})
}

// HistoryNavRequest asks for one history mutation. The alignment pass runs
// after every mutation while the gender lock is on.
type HistoryNavRequest struct {
	Action string `json:"action"` // nextAvatar, prevAvatar, nextSong, prevSong, setLock, setVocal, setAvatarIndex, setSongIndex
	Value  int    `json:"value,omitempty"`
	Lock   bool   `json:"lock,omitempty"`
	Vocal  string `json:"vocal,omitempty"`
}

// HistoryNavHandler applies a navigation action to the session histories.
func (h *APIHandler) HistoryNavHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req HistoryNavRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to load session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if session == nil {
		respondError(w, http.StatusBadRequest, "No creation session")
		return
	}

	browser := history.NewBrowser(session)
	switch req.Action {
	case "nextAvatar":
		browser.NextAvatar()
	case "prevAvatar":
		browser.PrevAvatar()
	case "nextSong":
		browser.NextSong()
	case "prevSong":
		browser.PrevSong()
	case "setLock":
		browser.SetLock(req.Lock)
	case "setVocal":
		if req.Vocal != model.GenderMale && req.Vocal != model.GenderFemale {
			respondError(w, http.StatusBadRequest, "vocal must be male or female")
			return
		}
		browser.SetVocalSelection(req.Vocal)
	case "setAvatarIndex":
		browser.SetAvatarIndex(req.Value)
	case "setSongIndex":
		browser.SetSongIndex(req.Value)
	default:
		respondError(w, http.StatusBadRequest, "Unknown action")
		return
	}
	browser.Apply(session)

	// Moving to another song invalidates a selection made for the old one.
	if session.AudioSelection != nil && session.AudioSelection.SongIndex != session.SongIndex {
		session.AudioSelection = nil
	}

	if err := h.sessions.Put(r.Context(), userID, session); err != nil {
		logger.Error("Failed to store session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to store session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": session,
	})
}
