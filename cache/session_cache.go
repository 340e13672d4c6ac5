package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"melodygram/model"

	"github.com/go-redis/redis/v8"
)

// SessionStore persists per-user creation sessions as single redis blobs with
// a TTL. Losing a session loses only in-progress creation state, never the
// song library or the ledger.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a session store over the given redis client.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// sessionKey generates the redis key for a user's creation session.
func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

// Get loads the user's creation session. Returns nil without error when no
// session exists.
func (s *SessionStore) Get(ctx context.Context, userID int64) (*model.CreationSession, error) {
	if s.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := s.client.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session model.CreationSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Put stores the user's creation session, refreshing the TTL.
func (s *SessionStore) Put(ctx context.Context, userID int64, session *model.CreationSession) error {
	if s.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Clear removes the user's creation session.
func (s *SessionStore) Clear(ctx context.Context, userID int64) error {
	if s.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
