// Package share implements the public share store. Records live in process
// memory as a stand-in for a real database; losing them on restart is
// accepted for this feature.
package share

import (
	"errors"
	"sync"
	"time"

	"melodygram/model"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown share IDs.
var ErrNotFound = errors.New("share not found")

// ErrExpired is returned once for an expired share; the record is evicted
// at the same time, so later lookups report ErrNotFound.
var ErrExpired = errors.New("share expired")

// TTL is how long a share stays valid after creation.
const TTL = 30 * 24 * time.Hour

// Store holds share records. Construct one at startup and pass it to the
// handlers; there is no package-level instance.
type Store struct {
	mu     sync.Mutex
	shares map[string]*model.ShareRecord
	now    func() time.Time
}

// NewStore creates an empty share store.
func NewStore() *Store {
	return &Store{
		shares: make(map[string]*model.ShareRecord),
		now:    time.Now,
	}
}

// Create registers a new public share and returns the stored record.
func (s *Store) Create(req model.CreateShareRequest) *model.ShareRecord {
	now := s.now()
	rec := &model.ShareRecord{
		ID:           uuid.NewString(),
		VideoURL:     req.VideoURL,
		Title:        req.Title,
		Lyrics:       req.Lyrics,
		ThumbnailURL: req.ThumbnailURL,
		Duration:     req.Duration,
		Genre:        req.Genre,
		Mood:         req.Mood,
		CreatedAt:    now,
		ExpiresAt:    now.Add(TTL),
		IsPublic:     true,
	}

	s.mu.Lock()
	s.shares[rec.ID] = rec
	s.mu.Unlock()
	return rec
}

// Get returns a share by ID, incrementing its view counter. Expiry is
// enforced lazily here: an expired record is evicted and ErrExpired
// returned once.
func (s *Store) Get(id string) (*model.ShareRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shares[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(rec.ExpiresAt) {
		delete(s.shares, id)
		return nil, ErrExpired
	}

	rec.Views++
	copied := *rec
	return &copied, nil
}

// Delete removes a share by ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shares[id]; !ok {
		return ErrNotFound
	}
	delete(s.shares, id)
	return nil
}

// Len reports the number of live records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shares)
}

// SetClock overrides the store's clock. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
