package provider

import (
	"context"
	"fmt"
	"net/http"

	"melodygram/logger"
)

// AvatarClient talks to the avatar video provider, which animates a photo
// into a talking/singing avatar lip-synced to an audio URL.
type AvatarClient struct {
	client *Client
}

// NewAvatarClient creates an avatar generation client.
func NewAvatarClient(baseURL, apiKey string) *AvatarClient {
	return &AvatarClient{client: NewClient(baseURL, apiKey)}
}

// AvatarRequest describes an avatar generation job. The audio URL must point
// at the clipped asset: the provider takes a single URL with no time-range
// parameter, so sending full-length audio is billed in full.
type AvatarRequest struct {
	ImageURL   string `json:"image_url"`
	AudioURL   string `json:"audio_url"`
	Title      string `json:"title"`
	LengthSecs int    `json:"length_seconds"`
	Resolution int    `json:"resolution"`
	Quality    string `json:"quality"`
}

// AvatarStatus is one poll result for an avatar job.
type AvatarStatus struct {
	State        string  `json:"state"`
	Progress     int     `json:"progress"` // 0-100
	VideoURL     string  `json:"video_url,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Message      string  `json:"message,omitempty"`
}

// Fixed quality parameters for all avatar jobs.
const (
	avatarResolution = 512
	avatarQuality    = "standard"
)

// Submit starts an avatar generation job and returns its job ID.
func (c *AvatarClient) Submit(ctx context.Context, req AvatarRequest) (string, error) {
	if !c.client.configured() {
		return "", ErrSetupRequired
	}

	req.Resolution = avatarResolution
	req.Quality = avatarQuality

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.client.baseURL+"/v1/avatars", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.client.postJSON(httpReq, req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("provider returned empty job id")
	}

	logger.Info("Submitted avatar generation",
		logger.String("jobId", resp.JobID),
		logger.String("title", req.Title))
	return resp.JobID, nil
}

// Poll fetches the current status of an avatar job.
func (c *AvatarClient) Poll(ctx context.Context, jobID string) (AvatarStatus, error) {
	if !c.client.configured() {
		return AvatarStatus{}, ErrSetupRequired
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.client.baseURL+"/v1/avatars/"+jobID, nil)
	if err != nil {
		return AvatarStatus{}, fmt.Errorf("failed to create request: %w", err)
	}

	var status AvatarStatus
	if err := c.client.getJSON(httpReq, &status); err != nil {
		return AvatarStatus{}, err
	}
	return status, nil
}
