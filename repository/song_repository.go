package repository

import (
	"errors"
	"fmt"
	"time"

	"melodygram/model"

	"gorm.io/gorm"
)

// ErrSongNotFound is returned when a song does not exist or belongs to
// another user.
var ErrSongNotFound = errors.New("song not found")

// SongRepository defines data operations on the saved song library.
type SongRepository interface {
	Create(song *model.SavedSong) error
	GetByID(userID int64, id string) (*model.SavedSong, error)
	ListByUser(userID int64) ([]model.SavedSong, error)
	UpdateProgress(userID int64, id string, progress int) error
	SetAudio(userID int64, id string, audioURL string, duration float64, progress int) error
	MarkCompleted(userID int64, id string, update CompletionUpdate) error
	MarkFailed(userID int64, id string, message string) error
	UpdateVocalGender(userID int64, id string, gender string) error
	IncrementPlays(userID int64, id string) error
	Delete(userID int64, id string) error
}

// CompletionUpdate carries the final result URLs for a finished generation.
type CompletionUpdate struct {
	AudioURL     string
	VideoURL     string
	ThumbnailURL string
	Duration     float64
}

// gormSongRepository implements SongRepository over GORM.
type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository creates a new gormSongRepository.
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

func (r *gormSongRepository) Create(song *model.SavedSong) error {
	if err := r.db.Create(song).Error; err != nil {
		return fmt.Errorf("failed to create saved song: %w", err)
	}
	return nil
}

func (r *gormSongRepository) GetByID(userID int64, id string) (*model.SavedSong, error) {
	var song model.SavedSong
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&song).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("failed to load song %s: %w", id, err)
	}
	return &song, nil
}

func (r *gormSongRepository) ListByUser(userID int64) ([]model.SavedSong, error) {
	var songs []model.SavedSong
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list songs for user %d: %w", userID, err)
	}
	return songs, nil
}

func (r *gormSongRepository) UpdateProgress(userID int64, id string, progress int) error {
	return r.update(userID, id, map[string]interface{}{"progress": progress})
}

// SetAudio records the generated audio while the record stays in the
// generating state, waiting for the avatar stage.
func (r *gormSongRepository) SetAudio(userID int64, id string, audioURL string, duration float64, progress int) error {
	return r.update(userID, id, map[string]interface{}{
		"audio_url": audioURL,
		"duration":  duration,
		"progress":  progress,
	})
}

func (r *gormSongRepository) MarkCompleted(userID int64, id string, update CompletionUpdate) error {
	now := time.Now()
	return r.update(userID, id, map[string]interface{}{
		"status":        model.SongStatusCompleted,
		"audio_url":     update.AudioURL,
		"video_url":     update.VideoURL,
		"thumbnail_url": update.ThumbnailURL,
		"duration":      update.Duration,
		"progress":      100,
		"error_message": "",
		"completed_at":  &now,
	})
}

func (r *gormSongRepository) MarkFailed(userID int64, id string, message string) error {
	return r.update(userID, id, map[string]interface{}{
		"status":        model.SongStatusFailed,
		"error_message": message,
		"progress":      0,
	})
}

func (r *gormSongRepository) UpdateVocalGender(userID int64, id string, gender string) error {
	return r.update(userID, id, map[string]interface{}{"vocal_gender": gender})
}

func (r *gormSongRepository) IncrementPlays(userID int64, id string) error {
	res := r.db.Model(&model.SavedSong{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumn("plays", gorm.Expr("plays + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to increment plays for song %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSongNotFound
	}
	return nil
}

func (r *gormSongRepository) Delete(userID int64, id string) error {
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.SavedSong{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete song %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSongNotFound
	}
	return nil
}

func (r *gormSongRepository) update(userID int64, id string, fields map[string]interface{}) error {
	res := r.db.Model(&model.SavedSong{}).Where("id = ? AND user_id = ?", id, userID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update song %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSongNotFound
	}
	return nil
}
