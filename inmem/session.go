package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kioskmvp/kiosk"
)

// SessionStore keeps sessions in a map guarded by a single lock.
// Sessions are lost on process restart.
type SessionStore struct {
	sessions map[string]kiosk.Session
	now      kiosk.Clock
	mutex    sync.RWMutex
}

var _ kiosk.SessionStore = (*SessionStore)(nil)

func NewSessionStore(clock kiosk.Clock) *SessionStore {
	if clock == nil {
		clock = kiosk.SystemClock
	}
	return &SessionStore{
		sessions: make(map[string]kiosk.Session),
		now:      clock,
	}
}

func (s *SessionStore) Create(ctx context.Context, username string) (kiosk.Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var token string
	for {
		var err error
		token, err = kiosk.GenerateSessionToken()
		if err != nil {
			return kiosk.Session{}, fmt.Errorf("generate token: %w", err)
		}
		if _, taken := s.sessions[token]; !taken {
			break
		}
	}

	now := s.now()
	session := kiosk.Session{
		Id:           token,
		Username:     username,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.sessions[token] = session
	return session, nil
}

func (s *SessionStore) Validate(ctx context.Context, sessionId string) (kiosk.Session, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	session, ok := s.sessions[sessionId]
	if !ok {
		return kiosk.Session{}, false, nil
	}
	now := s.now()
	if session.Expired(now) {
		delete(s.sessions, sessionId)
		return kiosk.Session{}, false, nil
	}
	session.LastActivity = now
	s.sessions[sessionId] = session
	return session, true, nil
}

func (s *SessionStore) Invalidate(ctx context.Context, sessionId string) (kiosk.Session, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	session, ok := s.sessions[sessionId]
	delete(s.sessions, sessionId)
	return session, ok, nil
}

func (s *SessionStore) SweepExpired(ctx context.Context, now time.Time) ([]kiosk.Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var expired []kiosk.Session
	for id, session := range s.sessions {
		if session.Expired(now) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	return expired, nil
}

func (s *SessionStore) Sessions(ctx context.Context) ([]kiosk.Session, error) {
	s.mutex.RLock()
	sessions := make([]kiosk.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mutex.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}
