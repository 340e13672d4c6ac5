package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"melodygram/cache"
	"melodygram/config"
	"melodygram/core/audio"
	"melodygram/core/auth"
	"melodygram/core/credit"
	"melodygram/core/pipeline"
	"melodygram/core/provider"
	"melodygram/core/share"
	"melodygram/repository"
)

// contextKey is the type for request context keys set by middleware.
type contextKey string

const (
	ctxUserID   contextKey = "userID"
	ctxUsername contextKey = "username"
)

// APIHandler handles all API requests.
type APIHandler struct {
	userRepo repository.UserRepository
	songRepo repository.SongRepository
	ledger   *credit.Ledger
	sessions *cache.SessionStore
	shares   *share.Store

	lyrics *provider.LyricsClient
	titles *provider.TitleClient
	songs  *provider.SongClient

	clipper  *audio.FFmpegClipper
	pipeline *pipeline.Pipeline
	progress *ProgressHub

	cfg *config.Config
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	userRepo repository.UserRepository,
	songRepo repository.SongRepository,
	ledger *credit.Ledger,
	sessions *cache.SessionStore,
	shares *share.Store,
	lyrics *provider.LyricsClient,
	titles *provider.TitleClient,
	songs *provider.SongClient,
	clipper *audio.FFmpegClipper,
	pipe *pipeline.Pipeline,
	progress *ProgressHub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo: userRepo,
		songRepo: songRepo,
		ledger:   ledger,
		sessions: sessions,
		shares:   shares,
		lyrics:   lyrics,
		titles:   titles,
		songs:    songs,
		clipper:  clipper,
		pipeline: pipe,
		progress: progress,
		cfg:      cfg,
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError writes a JSON error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// AuthMiddleware checks for a valid JWT token.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxUsername, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(ctxUserID).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}
