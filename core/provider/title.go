package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// TitleClient suggests a song title from lyrics through the same
// OpenAI-compatible chat API as LyricsClient.
type TitleClient struct {
	client *Client
	model  string
}

// NewTitleClient creates a title generation client.
func NewTitleClient(baseURL, apiKey, model string) *TitleClient {
	return &TitleClient{client: NewClient(baseURL, apiKey), model: model}
}

// Generate proposes a short title for the given lyrics.
func (c *TitleClient) Generate(ctx context.Context, lyrics string) (string, error) {
	if !c.client.configured() {
		return "", ErrSetupRequired
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "Suggest a short, catchy song title for the lyrics the user provides. Answer with the title only, no quotes, at most six words."},
			{Role: "user", Content: lyrics},
		},
		MaxTokens:   32,
		Temperature: 0.8,
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.client.baseURL+"/chat/completions", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	var resp chatResponse
	if err := c.client.postJSON(httpReq, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	title := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"'`)
	if title == "" {
		return "", fmt.Errorf("empty title returned")
	}
	return title, nil
}
