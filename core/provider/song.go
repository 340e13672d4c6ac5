package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"melodygram/logger"
)

// ErrPollBudgetExceeded is returned when a poll loop exhausts its
// maxAttempts x interval budget without reaching a terminal state.
var ErrPollBudgetExceeded = errors.New("polling budget exceeded")

// Job states reported by the song and avatar providers.
const (
	JobStatePending    = "pending"
	JobStateProcessing = "processing"
	JobStateCompleted  = "completed"
	JobStateFailed     = "failed"
)

// SongClient talks to the audio generation provider.
type SongClient struct {
	client *Client
}

// NewSongClient creates a song generation client.
func NewSongClient(baseURL, apiKey string) *SongClient {
	return &SongClient{client: NewClient(baseURL, apiKey)}
}

// SongRequest describes a song generation job.
type SongRequest struct {
	Title       string `json:"title"`
	Lyrics      string `json:"lyrics"`
	VocalGender string `json:"vocal_gender"` // male, female
	LengthSecs  int    `json:"length_seconds"`
	Genre       string `json:"genre,omitempty"`
	Mood        string `json:"mood,omitempty"`
}

// SongStatus is one poll result for a song job.
type SongStatus struct {
	State    string  `json:"state"`
	Progress int     `json:"progress"` // 0-100
	AudioURL string  `json:"audio_url,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// Submit starts a song generation job and returns its task ID.
func (c *SongClient) Submit(ctx context.Context, req SongRequest) (string, error) {
	if !c.client.configured() {
		return "", ErrSetupRequired
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.client.baseURL+"/v1/songs", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	var resp struct {
		TaskID string `json:"task_id"`
	}
	if err := c.client.postJSON(httpReq, req, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("provider returned empty task id")
	}

	logger.Info("Submitted song generation",
		logger.String("taskId", resp.TaskID),
		logger.String("title", req.Title))
	return resp.TaskID, nil
}

// Poll fetches the current status of a song job.
func (c *SongClient) Poll(ctx context.Context, taskID string) (SongStatus, error) {
	if !c.client.configured() {
		return SongStatus{}, ErrSetupRequired
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.client.baseURL+"/v1/songs/"+taskID, nil)
	if err != nil {
		return SongStatus{}, fmt.Errorf("failed to create request: %w", err)
	}

	var status SongStatus
	if err := c.client.getJSON(httpReq, &status); err != nil {
		return SongStatus{}, err
	}
	return status, nil
}

// WaitForCompletion polls until the job finishes or the attempt budget runs
// out. onProgress receives the provider's raw 0-100 progress; a nil callback
// is allowed. Cancelling ctx stops the loop.
func (c *SongClient) WaitForCompletion(ctx context.Context, taskID string, interval time.Duration, maxAttempts int, onProgress func(int)) (SongStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return SongStatus{}, ctx.Err()
		case <-ticker.C:
		}

		status, err := c.Poll(ctx, taskID)
		if err != nil {
			// Transient poll errors count against the budget but do not
			// abort the loop.
			logger.Warn("Song poll failed",
				logger.String("taskId", taskID),
				logger.ErrorField(err))
			continue
		}

		if onProgress != nil {
			onProgress(status.Progress)
		}

		switch status.State {
		case JobStateCompleted:
			if status.AudioURL == "" {
				return status, fmt.Errorf("song completed without audio URL")
			}
			return status, nil
		case JobStateFailed:
			return status, fmt.Errorf("song generation failed: %s", status.Message)
		}
	}
	return SongStatus{}, ErrPollBudgetExceeded
}
