package kiosk

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// IdleTimeout is the inactivity period after which a session expires.
	IdleTimeout = 8 * time.Hour

	// RecentWindow bounds the "recent sessions" statistic.
	RecentWindow = time.Hour
)

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

type Session struct {
	Id           string
	Username     string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Expired reports whether the session was idle for longer than IdleTimeout at now.
func (s Session) Expired(now time.Time) bool {
	return now.Sub(s.LastActivity) > IdleTimeout
}

func (s Session) ActiveWithin(now time.Time, window time.Duration) bool {
	return now.Sub(s.LastActivity) < window
}

// TruncatedId returns the id prefix that is safe to show in listings and logs.
func (s Session) TruncatedId() string {
	const visible = 8
	if len(s.Id) <= visible {
		return s.Id + "..."
	}
	return s.Id[:visible] + "..."
}

// SessionStore owns every Session record. Absence of a session is reported
// through the bool results, the error results are reserved for backend faults.
type SessionStore interface {
	// Create registers a new session for an already validated username.
	Create(ctx context.Context, username string) (Session, error)

	// Validate looks the session up, refreshes its last activity and returns it.
	// Expired sessions are removed and reported as absent.
	Validate(ctx context.Context, sessionId string) (Session, bool, error)

	// Invalidate removes the session and reports whether it existed.
	// Calling it again for the same id is a no-op.
	Invalidate(ctx context.Context, sessionId string) (Session, bool, error)

	// SweepExpired removes every session expired at now and returns them.
	SweepExpired(ctx context.Context, now time.Time) ([]Session, error)

	// Sessions lists live sessions ordered by creation time.
	Sessions(ctx context.Context) ([]Session, error)
}

// GenerateSessionToken returns 32 random bytes hex encoded.
func GenerateSessionToken() (string, error) {
	const tokenBytes = 32
	rawToken := make([]byte, tokenBytes)
	// crypto/rand - getentropy(2)
	bytesRead, err := rand.Read(rawToken)
	if err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	if bytesRead != tokenBytes {
		return "", fmt.Errorf("bytes read %d / required %d", bytesRead, tokenBytes)
	}
	return hex.EncodeToString(rawToken), nil
}
