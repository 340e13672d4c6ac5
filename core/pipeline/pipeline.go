// Package pipeline runs the avatar generation flow: validate the session,
// clip the selected audio window, resolve the image URL, gate on cost,
// submit the avatar job, poll it to completion, reconcile the detected
// avatar gender with the vocal selection, and persist the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"melodygram/core/audio"
	"melodygram/core/provider"
	"melodygram/logger"
	"melodygram/model"
	"melodygram/repository"
)

// AvatarService is the avatar provider surface the pipeline needs.
type AvatarService interface {
	Submit(ctx context.Context, req provider.AvatarRequest) (string, error)
	Poll(ctx context.Context, jobID string) (provider.AvatarStatus, error)
}

// GenderDetector is the vision provider surface the pipeline needs.
type GenderDetector interface {
	DetectGender(ctx context.Context, imageURL string) (provider.GenderDetection, error)
}

// ClipUploader publishes a clipped audio file and returns its public URL.
type ClipUploader interface {
	UploadClip(ctx context.Context, localPath, objectName string) (string, error)
}

// SessionStore is the session persistence surface the pipeline needs.
type SessionStore interface {
	Put(ctx context.Context, userID int64, session *model.CreationSession) error
	Clear(ctx context.Context, userID int64) error
}

// Options tunes the pipeline.
type Options struct {
	CostCeiling  float64       // abort before any paid call above this estimate
	CreditRate   float64       // USD per second, used for the cost estimate
	PollInterval time.Duration // avatar poll interval
}

// Pipeline orchestrates one generation flow. Stages run strictly
// sequentially; there is no fan-out.
type Pipeline struct {
	clipper  audio.Clipper
	uploader ClipUploader
	avatar   AvatarService
	vision   GenderDetector
	songs    repository.SongRepository
	sessions SessionStore
	opts     Options

	// onProgress receives overall progress (0-100) for a song ID. Audio
	// generation consumed the first 60%, so avatar polling maps into 60-100.
	onProgress func(songID string, progress int)
}

// New creates a pipeline.
func New(clipper audio.Clipper, uploader ClipUploader, avatar AvatarService, vision GenderDetector,
	songs repository.SongRepository, sessions SessionStore, opts Options) *Pipeline {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Pipeline{
		clipper:  clipper,
		uploader: uploader,
		avatar:   avatar,
		vision:   vision,
		songs:    songs,
		sessions: sessions,
		opts:     opts,
	}
}

// SetProgressFunc installs a progress callback.
func (p *Pipeline) SetProgressFunc(fn func(songID string, progress int)) {
	p.onProgress = fn
}

// Request is one generation run against an existing library record.
type Request struct {
	UserID  int64
	SongID  string // SavedSong created by the caller with status generating
	Session *model.CreationSession
}

// Result is the outcome of a successful run.
type Result struct {
	SongID       string  `json:"songId"`
	AudioURL     string  `json:"audioUrl"`
	VideoURL     string  `json:"videoUrl,omitempty"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
	Duration     float64 `json:"duration"`
	// SongOnly is true when the image was a user upload the avatar API
	// cannot animate, so the run completed without a video.
	SongOnly bool `json:"songOnly"`
	// CorrectedVocal is set when gender detection overrode the user's vocal
	// selection; the UI shows a one-time notice.
	CorrectedVocal string `json:"correctedVocal,omitempty"`
}

// Fixed quality parameters assumed by the cost estimate.
const avatarResolutionFactor = 1.0 // 512p baseline

// Run executes the flow. Any stage failure marks the record failed with the
// captured message and returns a StageError carrying the failure kind.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res, err := p.run(ctx, req)
	if err != nil {
		logger.Error("Generation failed",
			logger.String("songId", req.SongID),
			logger.String("kind", KindOf(err).String()),
			logger.ErrorField(err))
		if markErr := p.songs.MarkFailed(req.UserID, req.SongID, err.Error()); markErr != nil {
			logger.Error("Failed to mark song failed",
				logger.String("songId", req.SongID),
				logger.ErrorField(markErr))
		}
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, error) {
	s := req.Session

	// Stage: validate.
	if err := validate(s); err != nil {
		return nil, err
	}
	songEntry := s.SongHistory[s.SongIndex]

	// Stage: clip. Submitting full-length audio to the avatar API is a
	// forbidden state; without a selection bound to the current song the
	// whole flow aborts.
	clippedURL, clipDuration, err := p.clipStage(ctx, req, songEntry)
	if err != nil {
		return nil, err
	}

	// Stage: resolve image. Uploaded photos are not supported by the avatar
	// API; the run completes as song only.
	imageURL := ResolveImageURL(s.ImageURL)
	if !s.ImageGenerated {
		logger.Info("Uploaded image, skipping avatar generation",
			logger.String("songId", req.SongID))
		return p.finalize(ctx, req, Result{
			SongID:   req.SongID,
			AudioURL: clippedURL,
			Duration: clipDuration,
			SongOnly: true,
		}, repository.CompletionUpdate{
			AudioURL: clippedURL,
			Duration: clipDuration,
		})
	}

	// Stage: cost gate. Deterministic estimate, checked before any paid call.
	estimate := avatarResolutionFactor * clipDuration * p.opts.CreditRate
	if estimate > p.opts.CostCeiling {
		return nil, stageErr("costGate", KindValidation,
			fmt.Errorf("estimated cost $%.2f exceeds ceiling $%.2f", estimate, p.opts.CostCeiling))
	}

	// Stage: submit.
	jobID, err := p.avatar.Submit(ctx, provider.AvatarRequest{
		ImageURL:   imageURL,
		AudioURL:   clippedURL,
		Title:      s.Title,
		LengthSecs: s.SongLength,
	})
	if err != nil {
		return nil, stageErr("submit", ClassifyProviderErr(err), err)
	}
	logger.Info("Avatar job submitted",
		logger.String("songId", req.SongID),
		logger.String("jobId", jobID))

	// Stage: poll. No attempt cap here; the provider owns its own budget.
	status, err := p.pollStage(ctx, req, jobID)
	if err != nil {
		return nil, err
	}

	// Stage: gender check. An enhancement, not a correctness requirement:
	// detector failures keep the original selection.
	corrected := p.genderCheck(ctx, req, s, status)

	return p.finalize(ctx, req, Result{
		SongID:         req.SongID,
		AudioURL:       clippedURL,
		VideoURL:       status.VideoURL,
		ThumbnailURL:   status.ThumbnailURL,
		Duration:       status.Duration,
		CorrectedVocal: corrected,
	}, repository.CompletionUpdate{
		AudioURL:     clippedURL,
		VideoURL:     status.VideoURL,
		ThumbnailURL: status.ThumbnailURL,
		Duration:     status.Duration,
	})
}

// validate fails fast with a message enumerating every missing field.
func validate(s *model.CreationSession) error {
	var missing []string
	if strings.TrimSpace(s.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(s.Lyrics) == "" {
		missing = append(missing, "lyrics")
	}
	if s.VocalSelection != model.GenderMale && s.VocalSelection != model.GenderFemale {
		missing = append(missing, "vocal selection")
	}
	if s.SongLength <= 0 {
		missing = append(missing, "song length")
	}
	if s.ImageURL == "" {
		missing = append(missing, "image")
	}
	if len(s.SongHistory) == 0 || s.SongIndex < 0 || s.SongIndex >= len(s.SongHistory) ||
		s.SongHistory[s.SongIndex].AudioURL == "" {
		missing = append(missing, "generated song audio")
	}
	if len(missing) > 0 {
		return stageErr("validate", KindValidation,
			fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func (p *Pipeline) clipStage(ctx context.Context, req Request, songEntry model.SongHistoryEntry) (string, float64, error) {
	sel := req.Session.AudioSelection
	if sel == nil || !sel.Valid() {
		return "", 0, stageErr("clip", KindClip,
			errors.New("no audio selection for the chosen song; refusing to submit unclipped audio"))
	}
	if sel.SongIndex != req.Session.SongIndex {
		return "", 0, stageErr("clip", KindClip,
			fmt.Errorf("audio selection belongs to song %d, current song is %d", sel.SongIndex, req.Session.SongIndex))
	}

	window := audio.PlaybackWindow{Start: sel.StartTime, End: sel.EndTime}
	localPath, err := p.clipper.Clip(ctx, songEntry.AudioURL, window)
	if err != nil {
		return "", 0, stageErr("clip", KindClip, err)
	}
	defer os.Remove(localPath)

	objectName := fmt.Sprintf("clips/%s.mp3", req.SongID)
	publicURL, err := p.uploader.UploadClip(ctx, localPath, objectName)
	if err != nil {
		return "", 0, stageErr("clip", KindClip, err)
	}
	return publicURL, window.Duration(), nil
}

func (p *Pipeline) pollStage(ctx context.Context, req Request, jobID string) (provider.AvatarStatus, error) {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return provider.AvatarStatus{}, stageErr("poll", KindTimeout, ctx.Err())
		case <-ticker.C:
		}

		status, err := p.avatar.Poll(ctx, jobID)
		if err != nil {
			if errors.Is(err, provider.ErrUnauthorized) || errors.Is(err, provider.ErrSetupRequired) {
				return provider.AvatarStatus{}, stageErr("poll", ClassifyProviderErr(err), err)
			}
			// Transient poll errors are retried on the next tick.
			logger.Warn("Avatar poll failed",
				logger.String("jobId", jobID),
				logger.ErrorField(err))
			continue
		}

		p.reportProgress(req, 60+status.Progress*40/100)

		switch status.State {
		case provider.JobStateCompleted:
			if status.VideoURL == "" {
				return provider.AvatarStatus{}, stageErr("poll", KindNetwork,
					errors.New("avatar job completed without a video URL"))
			}
			return status, nil
		case provider.JobStateFailed:
			return provider.AvatarStatus{}, stageErr("poll", KindUnknown,
				fmt.Errorf("avatar generation failed: %s", status.Message))
		}
	}
}

// genderCheck returns the corrected vocal gender, or "" when no correction
// was applied. The correction always follows the avatar, never the reverse.
func (p *Pipeline) genderCheck(ctx context.Context, req Request, s *model.CreationSession, status provider.AvatarStatus) string {
	detectURL := status.ThumbnailURL
	if detectURL == "" {
		detectURL = ResolveImageURL(s.ImageURL)
	}

	det, err := p.vision.DetectGender(ctx, detectURL)
	if err != nil {
		logger.Warn("Gender detection failed, keeping selection",
			logger.String("songId", req.SongID),
			logger.ErrorField(err))
		return ""
	}
	if !det.Confident() || det.Gender == s.VocalSelection {
		return ""
	}

	logger.Info("Gender mismatch, correcting vocal selection",
		logger.String("songId", req.SongID),
		logger.String("selected", s.VocalSelection),
		logger.String("detected", det.Gender))

	s.VocalSelection = det.Gender
	if err := p.songs.UpdateVocalGender(req.UserID, req.SongID, det.Gender); err != nil {
		logger.Warn("Failed to persist corrected vocal gender",
			logger.String("songId", req.SongID),
			logger.ErrorField(err))
	}
	return det.Gender
}

func (p *Pipeline) finalize(ctx context.Context, req Request, res Result, update repository.CompletionUpdate) (*Result, error) {
	if err := p.songs.MarkCompleted(req.UserID, req.SongID, update); err != nil {
		return nil, stageErr("finalize", KindUnknown, err)
	}
	p.reportProgress(req, 100)

	// Ephemeral session state is cleared only after the record is safe.
	if err := p.sessions.Clear(ctx, req.UserID); err != nil {
		logger.Warn("Failed to clear session after generation",
			logger.Int64("userId", req.UserID),
			logger.ErrorField(err))
	}
	return &res, nil
}

func (p *Pipeline) reportProgress(req Request, progress int) {
	if progress > 100 {
		progress = 100
	}
	if err := p.songs.UpdateProgress(req.UserID, req.SongID, progress); err != nil {
		logger.Warn("Failed to persist progress",
			logger.String("songId", req.SongID),
			logger.ErrorField(err))
	}
	if p.onProgress != nil {
		p.onProgress(req.SongID, progress)
	}
}

// ClassifyProviderErr maps a provider client error onto a failure kind.
func ClassifyProviderErr(err error) Kind {
	switch {
	case errors.Is(err, provider.ErrSetupRequired):
		return KindConfig
	case errors.Is(err, provider.ErrUnauthorized):
		return KindAuth
	default:
		return KindNetwork
	}
}

// ResolveImageURL unwraps internal proxy URLs. The proxy exists to work
// around cross-origin restrictions in the browser; the avatar API needs the
// original, publicly fetchable upstream URL.
func ResolveImageURL(raw string) string {
	if !strings.Contains(raw, "/api/image-proxy") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if upstream := u.Query().Get("url"); upstream != "" {
		return upstream
	}
	return raw
}
