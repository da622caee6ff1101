package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/kioskmvp/kiosk"
	"github.com/uptrace/bun"
)

type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_log"`

	Id        int64                  `bun:",pk,autoincrement"`
	CreatedAt time.Time              `bun:",nullzero,notnull,default:current_timestamp"`
	Username  string                 `bun:",notnull"`
	Name      string                 `bun:",notnull"`
	Data      map[string]interface{} `bun:"type:jsonb"`
}

func (l *ActivityLog) ToDomain() kiosk.ActivityLog {
	return kiosk.ActivityLog{
		Id:        l.Id,
		CreatedAt: l.CreatedAt,
		Username:  l.Username,
		Name:      l.Name,
		Data:      l.Data,
	}
}

type ActivityStore struct {
	DB *bun.DB
}

var _ kiosk.ActivityStore = (*ActivityStore)(nil)

func (s *ActivityStore) AddLog(ctx context.Context, username string, activity kiosk.Activity) error {
	_, err := s.DB.NewInsert().
		Model(&ActivityLog{
			Username: username,
			Name:     activity.Name,
			Data:     activity.Data,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *ActivityStore) ByUsername(ctx context.Context, username string, limit int) ([]kiosk.ActivityLog, error) {
	var logs []ActivityLog
	query := s.DB.NewSelect().
		Model((*ActivityLog)(nil)).
		Where("activity_log.username=?", username).
		Order("activity_log.id DESC")
	if limit >= 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx, &logs); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	ml := make([]kiosk.ActivityLog, len(logs))
	for i, l := range logs {
		ml[i] = l.ToDomain()
	}
	return ml, nil
}
