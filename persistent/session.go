package persistent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kioskmvp/kiosk"
	"github.com/tidwall/buntdb"
)

const sessionKeyPrefix = "session:"

// recordTTL lets records outlive kiosk.IdleTimeout so expired sessions are still
// found, and reported, by Validate and SweepExpired before the backend drops them.
const recordTTL = kiosk.IdleTimeout + time.Hour

type Session struct {
	Id           string    `json:"id"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

func (s Session) ToDomain() kiosk.Session {
	return kiosk.Session{
		Id:           s.Id,
		Username:     s.Username,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

// SessionStore keeps sessions in buntdb, either in memory (":memory:") or in a file.
// Records also carry a buntdb TTL of recordTTL which is renewed on every refresh,
// the expiry decision itself is made against the store clock.
type SessionStore struct {
	Buntdb *buntdb.DB
	now    kiosk.Clock
}

var _ kiosk.SessionStore = (*SessionStore)(nil)

func NewSessionStore(bdb *buntdb.DB, clock kiosk.Clock) (*SessionStore, error) {
	if clock == nil {
		clock = kiosk.SystemClock
	}
	s := &SessionStore{Buntdb: bdb, now: clock}
	if err := s.CreateIndexes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) CreateIndexes() error {
	err := s.Buntdb.CreateIndex("sessions", sessionKeyPrefix+"*", buntdb.IndexString)
	if err != nil && !errors.Is(err, buntdb.ErrIndexExists) {
		return fmt.Errorf("create sessions index: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func expireOptions() *buntdb.SetOptions {
	return &buntdb.SetOptions{Expires: true, TTL: recordTTL}
}

func (s *SessionStore) Create(ctx context.Context, username string) (kiosk.Session, error) {
	var session Session
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		for {
			token, err := kiosk.GenerateSessionToken()
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			_, err = tx.Get(sessionKey(token))
			if errors.Is(err, buntdb.ErrNotFound) {
				session.Id = token
				break
			}
			if err != nil {
				return fmt.Errorf("check token collision: %w", err)
			}
		}

		now := s.now()
		session.Username = username
		session.CreatedAt = now
		session.LastActivity = now
		serializedSession, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("session serialize: %w", err)
		}
		_, _, err = tx.Set(sessionKey(session.Id), string(serializedSession), expireOptions())
		if err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		return nil
	})
	if err != nil {
		return kiosk.Session{}, fmt.Errorf("bunt update: %w", err)
	}
	return session.ToDomain(), nil
}

func (s *SessionStore) Validate(ctx context.Context, sessionId string) (kiosk.Session, bool, error) {
	var session Session
	found := false
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		serializedSession, err := tx.Get(sessionKey(sessionId))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("get serialized session: %w", err)
		}
		if err := json.Unmarshal([]byte(serializedSession), &session); err != nil {
			return fmt.Errorf("deserialize session: %w", err)
		}

		now := s.now()
		if session.ToDomain().Expired(now) {
			if _, err := tx.Delete(sessionKey(sessionId)); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("delete expired session: %w", err)
			}
			return nil
		}

		session.LastActivity = now
		refreshedSession, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("serialize session: %w", err)
		}
		_, _, err = tx.Set(sessionKey(sessionId), string(refreshedSession), expireOptions())
		if err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return kiosk.Session{}, false, fmt.Errorf("bunt update: %w", err)
	}
	if !found {
		return kiosk.Session{}, false, nil
	}
	return session.ToDomain(), true, nil
}

func (s *SessionStore) Invalidate(ctx context.Context, sessionId string) (kiosk.Session, bool, error) {
	var session Session
	removed := false
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		serializedSession, err := tx.Delete(sessionKey(sessionId))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("delete session key: %w", err)
		}
		if err := json.Unmarshal([]byte(serializedSession), &session); err != nil {
			return fmt.Errorf("deserialize deleted session: %w", err)
		}
		removed = true
		return nil
	})
	if err != nil {
		return kiosk.Session{}, false, fmt.Errorf("bunt update: %w", err)
	}
	return session.ToDomain(), removed, nil
}

func (s *SessionStore) SweepExpired(ctx context.Context, now time.Time) ([]kiosk.Session, error) {
	var expired []kiosk.Session
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		sessions, err := s.sessions(tx)
		if err != nil {
			return err
		}
		for _, session := range sessions {
			if !session.Expired(now) {
				continue
			}
			_, err := tx.Delete(sessionKey(session.Id))
			if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("delete session: %w", err)
			}
			expired = append(expired, session)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bunt update: %w", err)
	}
	return expired, nil
}

func (s *SessionStore) Sessions(ctx context.Context) ([]kiosk.Session, error) {
	var sessions []kiosk.Session
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		var err error
		sessions, err = s.sessions(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("buntdb view: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (s *SessionStore) sessions(tx *buntdb.Tx) ([]kiosk.Session, error) {
	sessions := make([]kiosk.Session, 0, 10)
	var listErr error
	err := tx.Ascend("sessions", func(key, value string) bool {
		var session Session
		if err := json.Unmarshal([]byte(value), &session); err != nil {
			listErr = fmt.Errorf("deserialize session %s: %w", key, err)
			return false
		}
		sessions = append(sessions, session.ToDomain())
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("ascend sessions: %w", err)
	}
	if listErr != nil {
		return nil, listErr
	}
	return sessions, nil
}
