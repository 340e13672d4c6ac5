package model

import "time"

// ShareRecord is one publicly shared result. Records live in an in-process
// store and expire 30 days after creation; expiry is enforced lazily on read.
type ShareRecord struct {
	ID           string    `json:"id"`
	VideoURL     string    `json:"videoUrl"`
	Title        string    `json:"title"`
	Lyrics       string    `json:"lyrics,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Duration     float64   `json:"duration,omitempty"`
	Genre        string    `json:"genre,omitempty"`
	Mood         string    `json:"mood,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Views        int       `json:"views"`
	IsPublic     bool      `json:"isPublic"`
}

// CreateShareRequest is the POST /api/share body.
type CreateShareRequest struct {
	VideoURL     string  `json:"videoUrl"`
	Title        string  `json:"title"`
	Lyrics       string  `json:"lyrics,omitempty"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Genre        string  `json:"genre,omitempty"`
	Mood         string  `json:"mood,omitempty"`
}
