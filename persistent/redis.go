package persistent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kioskmvp/kiosk"
	"github.com/redis/go-redis/v9"
)

// Optimistic transaction retries for a validate refresh racing with other writers.
const redisTxRetries = 3

// RedisSessionStore keeps every session under its own key with a TTL of
// recordTTL, renewed on each successful Validate.
type RedisSessionStore struct {
	Client *redis.Client
	prefix string
	now    kiosk.Clock
}

var _ kiosk.SessionStore = (*RedisSessionStore)(nil)

func NewRedisSessionStore(client *redis.Client, clock kiosk.Clock) *RedisSessionStore {
	if clock == nil {
		clock = kiosk.SystemClock
	}
	return &RedisSessionStore{
		Client: client,
		prefix: "kiosk:" + sessionKeyPrefix,
		now:    clock,
	}
}

func (s *RedisSessionStore) key(sessionId string) string {
	return s.prefix + sessionId
}

func (s *RedisSessionStore) Create(ctx context.Context, username string) (kiosk.Session, error) {
	now := s.now()
	for {
		token, err := kiosk.GenerateSessionToken()
		if err != nil {
			return kiosk.Session{}, fmt.Errorf("generate token: %w", err)
		}
		session := Session{Id: token, Username: username, CreatedAt: now, LastActivity: now}
		data, err := json.Marshal(&session)
		if err != nil {
			return kiosk.Session{}, fmt.Errorf("session serialize: %w", err)
		}

		created, err := s.Client.SetNX(ctx, s.key(token), data, recordTTL).Result()
		if err != nil {
			return kiosk.Session{}, fmt.Errorf("redis setnx: %w", err)
		}
		if created {
			return session.ToDomain(), nil
		}
	}
}

func (s *RedisSessionStore) Validate(ctx context.Context, sessionId string) (kiosk.Session, bool, error) {
	key := s.key(sessionId)

	var session Session
	found := false
	refresh := func(tx *redis.Tx) error {
		found = false
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return fmt.Errorf("deserialize session: %w", err)
		}

		now := s.now()
		if session.ToDomain().Expired(now) {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}

		session.LastActivity = now
		data, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("serialize session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, recordTTL)
			return nil
		})
		if err != nil {
			return err
		}
		found = true
		return nil
	}

	var err error
	for i := 0; i < redisTxRetries; i++ {
		err = s.Client.Watch(ctx, refresh, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return kiosk.Session{}, false, fmt.Errorf("redis refresh session: %w", err)
	}
	if !found {
		return kiosk.Session{}, false, nil
	}
	return session.ToDomain(), true, nil
}

func (s *RedisSessionStore) Invalidate(ctx context.Context, sessionId string) (kiosk.Session, bool, error) {
	raw, err := s.Client.GetDel(ctx, s.key(sessionId)).Result()
	if errors.Is(err, redis.Nil) {
		return kiosk.Session{}, false, nil
	}
	if err != nil {
		return kiosk.Session{}, false, fmt.Errorf("redis getdel: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return kiosk.Session{}, false, fmt.Errorf("deserialize deleted session: %w", err)
	}
	return session.ToDomain(), true, nil
}

func (s *RedisSessionStore) SweepExpired(ctx context.Context, now time.Time) ([]kiosk.Session, error) {
	sessions, err := s.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	var expired []kiosk.Session
	for _, session := range sessions {
		if !session.Expired(now) {
			continue
		}
		deleted, err := s.Client.Del(ctx, s.key(session.Id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis del: %w", err)
		}
		if deleted > 0 {
			expired = append(expired, session)
		}
	}
	return expired, nil
}

func (s *RedisSessionStore) Sessions(ctx context.Context) ([]kiosk.Session, error) {
	var keys []string
	iter := s.Client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return []kiosk.Session{}, nil
	}

	values, err := s.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	sessions := make([]kiosk.Session, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// expired or deleted between SCAN and MGET
			continue
		}
		var session Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("deserialize session %s: %w", keys[i], err)
		}
		sessions = append(sessions, session.ToDomain())
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}
