package model

import (
	"database/sql"
	"time"
)

// User represents a registered MelodyGram user.
type User struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Phone        sql.NullString `json:"phone,omitempty"`
	Preferences  sql.NullString `json:"preferences,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}
