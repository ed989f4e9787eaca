package redis

import (
	"context"
	"sync"
	"time"

	"case-trainer-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - It keeps a local in-memory map of sessions to reuse the in-process broadcast logic.
//   - Redis only marks session liveness; scores leave the process through ScoreboardSink.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	timer    time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

// NewSessionStore marks live sessions for ttl; timer is the host countdown of new sessions.
func NewSessionStore(client *redis.Client, ttl, timer time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		timer:    timer,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session
	}
	session := app.NewSession(sessionID, s.timer)
	s.sessions[sessionID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if session.IsEmpty() {
		delete(s.sessions, sessionID)
		_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
	}
}

func (s *SessionStore) key(sessionID string) string {
	return "trainer:session:" + sessionID
}
