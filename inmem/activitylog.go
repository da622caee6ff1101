package inmem

import (
	"context"
	"sync"

	"github.com/kioskmvp/kiosk"
)

// Logs kept per username, oldest are dropped first.
const maxLogsPerUsername = 100

type ActivityStore struct {
	lastId int64
	logs   map[string][]kiosk.ActivityLog
	now    kiosk.Clock
	mutex  sync.RWMutex
}

var _ kiosk.ActivityStore = (*ActivityStore)(nil)

func NewActivityStore(clock kiosk.Clock) *ActivityStore {
	if clock == nil {
		clock = kiosk.SystemClock
	}
	return &ActivityStore{
		logs: make(map[string][]kiosk.ActivityLog),
		now:  clock,
	}
}

func (s *ActivityStore) AddLog(ctx context.Context, username string, activity kiosk.Activity) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ulogs, ok := s.logs[username]
	if !ok {
		ulogs = make([]kiosk.ActivityLog, 0, 10)
	}
	s.lastId++
	ulogs = append(ulogs, kiosk.ActivityLog{
		Id:        s.lastId,
		CreatedAt: s.now(),
		Username:  username,
		Name:      activity.Name,
		Data:      activity.Data,
	})
	if len(ulogs) > maxLogsPerUsername {
		ulogs = append([]kiosk.ActivityLog(nil), ulogs[len(ulogs)-maxLogsPerUsername:]...)
	}
	s.logs[username] = ulogs
	return nil
}

func (s *ActivityStore) ByUsername(ctx context.Context, username string, limit int) ([]kiosk.ActivityLog, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ulogs := s.logs[username]
	if limit < 0 || limit > len(ulogs) {
		limit = len(ulogs)
	}
	logs := make([]kiosk.ActivityLog, 0, limit)
	for i := len(ulogs) - 1; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, ulogs[i])
	}
	return logs, nil
}
