package kiosk

import (
	"context"
	"time"
)

const (
	ActivitySessionCreated     = "session_created"
	ActivitySessionInvalidated = "session_invalidated"
	ActivitySessionExpired     = "session_expired"
)

type Activity struct {
	Name string
	Data map[string]interface{}
}

type ActivityLog struct {
	Id        int64
	CreatedAt time.Time
	Username  string
	Name      string
	Data      map[string]interface{}
}

type ActivityStore interface {
	AddLog(ctx context.Context, username string, activity Activity) error

	// ByUsername returns up to limit most recent logs, newest first.
	ByUsername(ctx context.Context, username string, limit int) ([]ActivityLog, error)
}
