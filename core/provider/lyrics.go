package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"melodygram/logger"
)

// Chat completion DTOs shared by the LLM-backed clients (lyrics, title,
// vision). The endpoint is OpenAI-compatible.

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string, or []contentPart for vision
}

type contentPart struct {
	Type     string    `json:"type"` // text, image_url
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const lyricsSystemPrompt = `You are a professional songwriter. Write complete, original song lyrics.
Rules:
- Output only the lyrics, no commentary, no markdown headers.
- Use [Verse], [Chorus] and [Bridge] section markers.
- Match the requested genre and mood.
- Keep the song singable within the requested length.`

// LyricsClient generates song lyrics through an OpenAI-compatible chat API.
type LyricsClient struct {
	client *Client
	model  string
}

// NewLyricsClient creates a lyrics generation client.
func NewLyricsClient(baseURL, apiKey, model string) *LyricsClient {
	return &LyricsClient{client: NewClient(baseURL, apiKey), model: model}
}

// LyricsRequest describes the lyrics the user asked for.
type LyricsRequest struct {
	Theme      string
	Genre      string
	Mood       string
	LengthSecs int
}

// Generate produces lyrics for the request.
func (c *LyricsClient) Generate(ctx context.Context, req LyricsRequest) (string, error) {
	if !c.client.configured() {
		return "", ErrSetupRequired
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write lyrics for a song about: %s\n", req.Theme)
	if req.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", req.Genre)
	}
	if req.Mood != "" {
		fmt.Fprintf(&b, "Mood: %s\n", req.Mood)
	}
	if req.LengthSecs > 0 {
		fmt.Fprintf(&b, "Target length: about %d seconds\n", req.LengthSecs)
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: lyricsSystemPrompt},
			{Role: "user", Content: b.String()},
		},
		MaxTokens:   1024,
		Temperature: 0.9,
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

	lyrics := strings.TrimSpace(resp.Choices[0].Message.Content)
	logger.Info("Generated lyrics",
		logger.String("theme", req.Theme),
		logger.Int("chars", len(lyrics)))
	return lyrics, nil
}
