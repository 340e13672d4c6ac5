package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"melodygram/logger"
)

// GenderDetection is the vision model's verdict on an avatar image.
type GenderDetection struct {
	Gender     string  `json:"gender"`     // male, female
	Confidence float64 `json:"confidence"` // 0-1
}

// Confident reports whether the detection is strong enough to act on.
// Weak detections never override the user's selection.
func (d GenderDetection) Confident() bool {
	return (d.Gender == "male" || d.Gender == "female") && d.Confidence >= 0.8
}

// VisionClient detects the apparent gender of a generated avatar so the
// displayed vocal selection can be kept consistent with it.
type VisionClient struct {
	client *Client
	model  string
}

// NewVisionClient creates a gender detection client.
func NewVisionClient(baseURL, apiKey, model string) *VisionClient {
	return &VisionClient{client: NewClient(baseURL, apiKey), model: model}
}

const visionPrompt = `Look at the person in this image and answer with strict JSON only:
{"gender": "male" or "female", "confidence": 0.0-1.0}
confidence is how certain you are about the apparent gender.`

// DetectGender asks the vision model to classify the avatar image.
func (c *VisionClient) DetectGender(ctx context.Context, imageURL string) (GenderDetection, error) {
	if !c.client.configured() {
		return GenderDetection{}, ErrSetupRequired
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: visionPrompt},
					{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
				},
			},
		},
		MaxTokens: 64,
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.client.baseURL+"/chat/completions", nil)
	if err != nil {
		return GenderDetection{}, fmt.Errorf("failed to create request: %w", err)
	}

	var resp chatResponse
	if err := c.client.postJSON(httpReq, payload, &resp); err != nil {
		return GenderDetection{}, err
	}
	if len(resp.Choices) == 0 {
		return GenderDetection{}, fmt.Errorf("no response choices returned")
	}

	content := resp.Choices[0].Message.Content
	// Models occasionally wrap the JSON in a code fence.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var det GenderDetection
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &det); err != nil {
		return GenderDetection{}, fmt.Errorf("failed to parse detection %q: %w", content, err)
	}
	det.Gender = strings.ToLower(det.Gender)

	logger.Debug("Gender detection",
		logger.String("gender", det.Gender),
		logger.Float64("confidence", det.Confidence))
	return det, nil
}
