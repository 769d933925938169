package memory

import (
	"context"
	"sync"
	"time"

	"quiz-webapp/internal/domain"
)

// TokenStore keeps signed-in sessions in process memory.
type TokenStore struct {
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]tokenEntry
}

type tokenEntry struct {
	user      domain.User
	expiresAt time.Time
}

func NewTokenStore() *TokenStore {
	return NewTokenStoreWithClock(time.Now)
}

// NewTokenStoreWithClock is test-only for deterministic expiry.
func NewTokenStoreWithClock(clock func() time.Time) *TokenStore {
	return &TokenStore{clock: clock, sessions: make(map[string]tokenEntry)}
}

func (s *TokenStore) Save(_ context.Context, tokenID string, user domain.User, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := tokenEntry{user: user}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.sessions[tokenID] = entry
	return nil
}

func (s *TokenStore) Load(_ context.Context, tokenID string) (domain.User, error) {
	s.mu.RLock()
	entry, ok := s.sessions[tokenID]
	s.mu.RUnlock()
	if !ok {
		return domain.User{}, domain.ErrTokenInvalid
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		s.mu.Lock()
		delete(s.sessions, tokenID)
		s.mu.Unlock()
		return domain.User{}, domain.ErrTokenInvalid
	}
	return entry.user, nil
}

func (s *TokenStore) Delete(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenID)
	return nil
}
