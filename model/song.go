package model

import "time"

// Song generation status values.
const (
	SongStatusGenerating = "generating"
	SongStatusCompleted  = "completed"
	SongStatusFailed     = "failed"
)

// Vocal gender values requested for generated audio.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// SavedSong is a library entry for one generation run. It is created when a
// generation starts and mutated in place by status callbacks while the remote
// job runs. The remote job is referenced only by TaskID; its lifecycle belongs
// to the provider.
type SavedSong struct {
	ID           string     `json:"id" gorm:"primaryKey;size:64"`
	UserID       int64      `json:"userId" gorm:"index;not null"`
	Title        string     `json:"title" gorm:"size:255;not null"`
	Lyrics       string     `json:"lyrics" gorm:"type:text"`
	VocalGender  string     `json:"vocalGender" gorm:"size:10;not null"` // male, female
	SongLength   int        `json:"songLength,omitempty"`                // requested length in seconds
	ImageURL     string     `json:"imageUrl,omitempty" gorm:"size:500"`
	Status       string     `json:"status" gorm:"size:20;default:'generating';index"` // generating, completed, failed
	AudioURL     string     `json:"audioUrl,omitempty" gorm:"size:500"`
	TaskID       string     `json:"taskId,omitempty" gorm:"size:100;index"`
	VideoURL     string     `json:"videoUrl,omitempty" gorm:"size:500"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty" gorm:"size:500"`
	Duration     float64    `json:"duration,omitempty"` // actual produced duration in seconds
	ErrorMessage string     `json:"errorMessage,omitempty" gorm:"type:text"`
	Progress     int        `json:"progress" gorm:"default:0"` // 0-100
	Plays        int        `json:"plays" gorm:"default:0"`
	Genre        string     `json:"genre,omitempty" gorm:"size:100"`
	Mood         string     `json:"mood,omitempty" gorm:"size:100"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// TableName keeps the table name stable regardless of gorm pluralization rules.
func (SavedSong) TableName() string {
	return "saved_songs"
}
