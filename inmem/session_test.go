package inmem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kioskmvp/kiosk"
	"github.com/stretchr/testify/assert"
)

func testClock(start time.Time) (kiosk.Clock, func(d time.Duration)) {
	var mutex sync.Mutex
	now := start
	clock := func() time.Time {
		mutex.Lock()
		defer mutex.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mutex.Lock()
		now = now.Add(d)
		mutex.Unlock()
	}
	return clock, advance
}

var clockStart = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func TestSessionStoreCreateAndValidate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	clock, advance := testClock(clockStart)
	s := NewSessionStore(clock)

	session, err := s.Create(ctx, "Jean-Pierre")
	if !assert.NoError(err) {
		return
	}
	assert.Regexp(`^[0-9a-f]{64}$`, session.Id)
	assert.Equal("Jean-Pierre", session.Username)
	assert.Equal(clockStart, session.CreatedAt)
	assert.Equal(clockStart, session.LastActivity)

	advance(time.Minute)
	validated, ok, err := s.Validate(ctx, session.Id)
	if assert.NoError(err) && assert.True(ok) {
		assert.Equal("Jean-Pierre", validated.Username)
		assert.Equal(clockStart, validated.CreatedAt)
		assert.Equal(clockStart.Add(time.Minute), validated.LastActivity)
	}

	_, ok, err = s.Validate(ctx, "unexisting_session_token")
	assert.NoError(err)
	assert.False(ok)
}

func TestSessionStoreUniqueIds(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewSessionStore(nil)

	const count = 200
	ids := make(map[string]bool, count)
	for i := 0; i < count; i++ {
		session, err := s.Create(ctx, "Same Name")
		if !assert.NoError(err) {
			return
		}
		ids[session.Id] = true
	}
	assert.Equal(count, len(ids))

	sessions, err := s.Sessions(ctx)
	assert.NoError(err)
	assert.Equal(count, len(sessions))
}

func TestSessionStoreInvalidateIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewSessionStore(nil)

	session, err := s.Create(ctx, "Mary O'Connor")
	if !assert.NoError(err) {
		return
	}

	removedSession, removed, err := s.Invalidate(ctx, session.Id)
	assert.NoError(err)
	assert.True(removed)
	assert.Equal(session, removedSession)

	_, removed, err = s.Invalidate(ctx, session.Id)
	assert.NoError(err)
	assert.False(removed)

	_, ok, err := s.Validate(ctx, session.Id)
	assert.NoError(err)
	assert.False(ok)
}

func TestSessionStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	clock, advance := testClock(clockStart)
	s := NewSessionStore(clock)

	stale, err := s.Create(ctx, "Stale User")
	if !assert.NoError(err) {
		return
	}
	advance(2 * time.Hour)
	fresh, err := s.Create(ctx, "Fresh User")
	if !assert.NoError(err) {
		return
	}

	advance(6*time.Hour + time.Minute)

	// not swept yet, still rejected on lookup
	_, ok, err := s.Validate(ctx, stale.Id)
	assert.NoError(err)
	assert.False(ok)

	_, ok, err = s.Validate(ctx, fresh.Id)
	assert.NoError(err)
	assert.True(ok)

	sessions, err := s.Sessions(ctx)
	if assert.NoError(err) && assert.Equal(1, len(sessions)) {
		assert.Equal(fresh.Id, sessions[0].Id)
	}
}

func TestSessionStoreSweepExpired(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	clock, advance := testClock(clockStart)
	s := NewSessionStore(clock)

	stale, err := s.Create(ctx, "Stale User")
	if !assert.NoError(err) {
		return
	}
	advance(time.Hour)
	fresh, err := s.Create(ctx, "Fresh User")
	if !assert.NoError(err) {
		return
	}

	expired, err := s.SweepExpired(ctx, clockStart.Add(8*time.Hour))
	assert.NoError(err)
	assert.Equal(0, len(expired))

	expired, err = s.SweepExpired(ctx, clockStart.Add(8*time.Hour+time.Minute))
	if assert.NoError(err) && assert.Equal(1, len(expired)) {
		assert.Equal(stale.Id, expired[0].Id)
	}

	sessions, err := s.Sessions(ctx)
	if assert.NoError(err) && assert.Equal(1, len(sessions)) {
		assert.Equal(fresh.Id, sessions[0].Id)
	}
}

func TestSessionStoreRefreshOnRead(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	clock, advance := testClock(clockStart)
	s := NewSessionStore(clock)

	session, err := s.Create(ctx, "Active User")
	if !assert.NoError(err) {
		return
	}

	advance(4 * time.Hour)
	_, ok, err := s.Validate(ctx, session.Id)
	assert.NoError(err)
	assert.True(ok)

	expired, err := s.SweepExpired(ctx, session.LastActivity.Add(8*time.Hour+time.Minute))
	assert.NoError(err)
	assert.Equal(0, len(expired))

	advance(4*time.Hour + time.Minute)
	_, ok, err = s.Validate(ctx, session.Id)
	assert.NoError(err)
	assert.True(ok)
}

func TestSessionStoreOrdering(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	clock, advance := testClock(clockStart)
	s := NewSessionStore(clock)

	names := []string{"First", "Second", "Third"}
	for _, name := range names {
		_, err := s.Create(ctx, name)
		if !assert.NoError(err) {
			return
		}
		advance(time.Second)
	}

	sessions, err := s.Sessions(ctx)
	if assert.NoError(err) && assert.Equal(len(names), len(sessions)) {
		for i, name := range names {
			assert.Equal(name, sessions[i].Username)
		}
	}
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				session, err := s.Create(ctx, "Parallel User")
				if err != nil {
					t.Error(err)
					return
				}
				_, _, _ = s.Validate(ctx, session.Id)
				_, _ = s.Sessions(ctx)
				_, _ = s.SweepExpired(ctx, time.Now())
				_, _, _ = s.Invalidate(ctx, session.Id)
			}
		}()
	}
	wg.Wait()

	sessions, err := s.Sessions(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(sessions))
}
