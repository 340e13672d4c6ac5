package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"melodygram/core/history"
	"melodygram/core/pipeline"
	"melodygram/core/provider"
	"melodygram/logger"
	"melodygram/model"
)

// GenerateLyricsRequest carries the creative brief for the lyrics model.
type GenerateLyricsRequest struct {
	Theme      string `json:"theme"`
	Genre      string `json:"genre"`
	Mood       string `json:"mood"`
	LengthSecs int    `json:"lengthSecs"`
}

// GenerateLyricsHandler asks the LLM for lyrics and stores them on the session.
func (h *APIHandler) GenerateLyricsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req GenerateLyricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Theme == "" {
		respondError(w, http.StatusBadRequest, "theme is required")
		return
	}

	lyrics, err := h.lyrics.Generate(r.Context(), provider.LyricsRequest{
		Theme:      req.Theme,
		Genre:      req.Genre,
		Mood:       req.Mood,
		LengthSecs: req.LengthSecs,
	})
	if err != nil {
		logger.Error("Lyrics generation failed", logger.Int64("userID", userID), logger.ErrorField(err))
		respondProviderError(w, err, "Lyrics generation failed")
		return
	}

	session, serr := h.sessions.Get(r.Context(), userID)
	if serr == nil {
		if session == nil {
			session = &model.CreationSession{}
		}
		session.Lyrics = lyrics
		if req.Genre != "" {
			session.Genre = req.Genre
		}
		if req.Mood != "" {
			session.Mood = req.Mood
		}
		if req.LengthSecs > 0 {
			session.SongLength = req.LengthSecs
		}
		if perr := h.sessions.Put(r.Context(), userID, session); perr != nil {
			logger.Warn("Failed to persist lyrics to session", logger.ErrorField(perr))
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"lyrics":  lyrics,
	})
}

// GenerateTitleHandler derives a short title from the session lyrics.
func (h *APIHandler) GenerateTitleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Lyrics string `json:"lyrics"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Lyrics == "" {
		respondError(w, http.StatusBadRequest, "lyrics is required")
		return
	}

	title, err := h.titles.Generate(r.Context(), req.Lyrics)
	if err != nil {
		logger.Error("Title generation failed", logger.Int64("userID", userID), logger.ErrorField(err))
		respondProviderError(w, err, "Title generation failed")
		return
	}

	session, serr := h.sessions.Get(r.Context(), userID)
	if serr == nil && session != nil {
		session.Title = title
		if perr := h.sessions.Put(r.Context(), userID, session); perr != nil {
			logger.Warn("Failed to persist title to session", logger.ErrorField(perr))
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"title":   title,
	})
}

// GenerateSongHandler submits a song job and polls it in the background.
// Provider progress maps onto the 0-60 band of overall progress; the avatar
// stage owns 60-100.
func (h *APIHandler) GenerateSongHandler(w http.ResponseWriter, r *http.Request) {
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
	if session == nil || session.Lyrics == "" {
		respondError(w, http.StatusBadRequest, "Generate lyrics first")
		return
	}
	if session.VocalSelection != model.GenderMale && session.VocalSelection != model.GenderFemale {
		respondError(w, http.StatusBadRequest, "Select a vocal gender first")
		return
	}

	songID := uuid.New().String()

	// Credits are debited up front; a failed generation refunds them.
	ok, err := h.ledger.Spend(r.Context(), userID, session.SongLength, songID, session.Title)
	if err != nil {
		logger.Error("Failed to debit credits", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to debit credits")
		return
	}
	if !ok {
		respondError(w, http.StatusPaymentRequired, "Not enough credits for this song length")
		return
	}

	taskID, err := h.songs.Submit(r.Context(), provider.SongRequest{
		Title:       session.Title,
		Lyrics:      session.Lyrics,
		VocalGender: session.VocalSelection,
		LengthSecs:  session.SongLength,
		Genre:       session.Genre,
		Mood:        session.Mood,
	})
	if err != nil {
		logger.Error("Song submission failed", logger.Int64("userID", userID), logger.ErrorField(err))
		if rerr := h.ledger.Refund(r.Context(), userID, session.SongLength, songID, "Refund: song generation failed to start"); rerr != nil {
			logger.Error("Failed to refund credits", logger.ErrorField(rerr))
		}
		respondProviderError(w, err, "Song generation failed to start")
		return
	}

	song := &model.SavedSong{
		ID:          songID,
		UserID:      userID,
		Title:       session.Title,
		Lyrics:      session.Lyrics,
		VocalGender: session.VocalSelection,
		SongLength:  session.SongLength,
		ImageURL:    session.ImageURL,
		Genre:       session.Genre,
		Mood:        session.Mood,
		Status:      model.SongStatusGenerating,
		TaskID:      taskID,
		Progress:    0,
	}
	if err := h.songRepo.Create(song); err != nil {
		logger.Error("Failed to create song record", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to create song record")
		return
	}

	go h.pollSong(userID, song.ID, taskID, session.SongLength)

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"songId":  song.ID,
		"taskId":  taskID,
	})
}

func (h *APIHandler) pollSong(userID int64, songID, taskID string, lengthSecs int) {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(h.cfg.SongPollMaxAttempts+1)*h.cfg.SongPollInterval)
	defer cancel()

	status, err := h.songs.WaitForCompletion(ctx, taskID, h.cfg.SongPollInterval, h.cfg.SongPollMaxAttempts,
		func(progress int) {
			overall := progress * 60 / 100
			if uerr := h.songRepo.UpdateProgress(userID, songID, overall); uerr != nil {
				logger.Warn("Failed to update song progress", logger.String("songID", songID), logger.ErrorField(uerr))
			}
			h.progress.Publish(songID, overall, model.SongStatusGenerating, "")
		})
	if err != nil {
		logger.Error("Song generation failed",
			logger.String("songID", songID), logger.String("taskID", taskID), logger.ErrorField(err))
		if merr := h.songRepo.MarkFailed(userID, songID, err.Error()); merr != nil {
			logger.Error("Failed to mark song failed", logger.ErrorField(merr))
		}
		if rerr := h.ledger.Refund(ctx, userID, lengthSecs, songID, "Refund: song generation failed"); rerr != nil {
			logger.Error("Failed to refund credits", logger.ErrorField(rerr))
		}
		h.progress.Publish(songID, 0, model.SongStatusFailed, "Song generation failed")
		return
	}

	if err := h.songRepo.SetAudio(userID, songID, status.AudioURL, status.Duration, 60); err != nil {
		logger.Error("Failed to store song audio", logger.String("songID", songID), logger.ErrorField(err))
		return
	}
	h.progress.Publish(songID, 60, model.SongStatusGenerating, "")

	// The finished track goes on the session history so the user can page
	// back to it after further generations.
	session, serr := h.sessions.Get(ctx, userID)
	if serr != nil || session == nil {
		if serr != nil {
			logger.Warn("Failed to load session after song completion", logger.ErrorField(serr))
		}
		return
	}
	browser := history.NewBrowser(session)
	browser.AppendSong(model.SongHistoryEntry{
		AudioURL:      status.AudioURL,
		SelectedVocal: session.VocalSelection,
		Title:         session.Title,
		SongLength:    int(status.Duration),
	})
	browser.Apply(session)
	session.AudioSelection = nil
	if perr := h.sessions.Put(ctx, userID, session); perr != nil {
		logger.Warn("Failed to persist song history", logger.ErrorField(perr))
	}
}

// GenerateAvatarHandler runs the full clip/avatar pipeline for the current
// session against an existing song record.
func (h *APIHandler) GenerateAvatarHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		SongID string `json:"songId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SongID == "" {
		respondError(w, http.StatusBadRequest, "songId is required")
		return
	}

	song, err := h.songRepo.GetByID(userID, req.SongID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Song not found")
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

	if err := h.songRepo.UpdateProgress(userID, song.ID, 60); err != nil {
		logger.Warn("Failed to reset song progress", logger.ErrorField(err))
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		result, perr := h.pipeline.Run(ctx, pipeline.Request{
			UserID:  userID,
			SongID:  song.ID,
			Session: session,
		})
		if perr != nil {
			kind := pipeline.KindOf(perr)
			logger.Error("Avatar pipeline failed",
				logger.String("songID", song.ID),
				logger.String("kind", kind.String()),
				logger.ErrorField(perr))
			h.progress.Publish(song.ID, 0, model.SongStatusFailed, kind.UserMessage())
			return
		}
		h.progress.Publish(song.ID, 100, model.SongStatusCompleted, "")
		logger.Info("Avatar pipeline completed",
			logger.String("songID", result.SongID),
			logger.Bool("songOnly", result.SongOnly))
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"songId":  song.ID,
	})
}

// GenerationStatusHandler reports progress for a song being generated.
func (h *APIHandler) GenerationStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	songID := mux.Vars(r)["id"]
	song, err := h.songRepo.GetByID(userID, songID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Song not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"songId":   song.ID,
		"status":   song.Status,
		"progress": song.Progress,
		"audioUrl": song.AudioURL,
		"videoUrl": song.VideoURL,
	})
}

func respondProviderError(w http.ResponseWriter, err error, fallback string) {
	switch pipeline.ClassifyProviderErr(err) {
	case pipeline.KindConfig:
		respondError(w, http.StatusServiceUnavailable, "Provider is not configured")
	case pipeline.KindAuth:
		respondError(w, http.StatusBadGateway, "Provider rejected our credentials")
	default:
		respondError(w, http.StatusBadGateway, fallback)
	}
}
