package server

import (
	"encoding/json"
	"net/http"

	"melodygram/logger"
)

// GetCurrentUserHandler returns the authenticated user's profile.
func (h *APIHandler) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userRepo.GetUserByID(userID)
	if err != nil {
		logger.Error("Failed to load user", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user": map[string]interface{}{
			"id":          user.ID,
			"username":    user.Username,
			"email":       user.Email,
			"phone":       user.Phone.String,
			"preferences": user.Preferences.String,
		},
	})
}

// UpdatePreferencesHandler stores the user's preferences blob. The server
// does not interpret it; the client owns its shape.
func (h *APIHandler) UpdatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Preferences json.RawMessage `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Preferences) == 0 {
		respondError(w, http.StatusBadRequest, "preferences is required")
		return
	}

	if err := h.userRepo.UpdatePreferences(userID, string(req.Preferences)); err != nil {
		logger.Error("Failed to update preferences", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to update preferences")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
