package mock

import (
	"context"

	"github.com/kioskmvp/kiosk"
)

type ActivityStore struct {
	AddLogFn func(ctx context.Context, username string, activity kiosk.Activity) error

	ByUsernameFn func(ctx context.Context, username string, limit int) ([]kiosk.ActivityLog, error)
}

var _ kiosk.ActivityStore = ActivityStore{}

func (s ActivityStore) AddLog(ctx context.Context, username string, activity kiosk.Activity) error {
	return s.AddLogFn(ctx, username, activity)
}

func (s ActivityStore) ByUsername(ctx context.Context, username string, limit int) ([]kiosk.ActivityLog, error) {
	return s.ByUsernameFn(ctx, username, limit)
}
