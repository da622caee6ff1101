package mock

import (
	"context"
	"time"

	"github.com/kioskmvp/kiosk"
)

type SessionStore struct {
	CreateFn func(ctx context.Context, username string) (kiosk.Session, error)

	ValidateFn func(ctx context.Context, sessionId string) (kiosk.Session, bool, error)

	InvalidateFn func(ctx context.Context, sessionId string) (kiosk.Session, bool, error)

	SweepExpiredFn func(ctx context.Context, now time.Time) ([]kiosk.Session, error)

	SessionsFn func(ctx context.Context) ([]kiosk.Session, error)
}

var _ kiosk.SessionStore = SessionStore{}

func (s SessionStore) Create(ctx context.Context, username string) (kiosk.Session, error) {
	return s.CreateFn(ctx, username)
}

func (s SessionStore) Validate(ctx context.Context, sessionId string) (kiosk.Session, bool, error) {
	return s.ValidateFn(ctx, sessionId)
}

func (s SessionStore) Invalidate(ctx context.Context, sessionId string) (kiosk.Session, bool, error) {
	return s.InvalidateFn(ctx, sessionId)
}

func (s SessionStore) SweepExpired(ctx context.Context, now time.Time) ([]kiosk.Session, error) {
	return s.SweepExpiredFn(ctx, now)
}

func (s SessionStore) Sessions(ctx context.Context) ([]kiosk.Session, error) {
	return s.SessionsFn(ctx)
}
