package persistent

import (
	"context"
	"testing"

	"github.com/kioskmvp/kiosk"
	"github.com/stretchr/testify/assert"
)

func TestActivityStore(t *testing.T) {
	if testing.Short() || TestEnvDsn() == "" {
		t.SkipNow()
		return
	}
	assert := assert.New(t)
	ctx := context.Background()
	db, err := PgOpenTest(ctx)
	if !assert.NoError(err) {
		return
	}
	defer db.Close()

	if !assert.NoError(CreateSchema(ctx, db)) {
		return
	}
	_, err = db.NewDelete().
		Model((*ActivityLog)(nil)).
		Where("1=1").
		Exec(ctx)
	if !assert.NoError(err) {
		return
	}

	store := &ActivityStore{DB: db}

	const username = "Jean-Pierre"

	assert.NoError(store.AddLog(ctx, username, kiosk.Activity{Name: kiosk.ActivitySessionCreated}))
	assert.NoError(store.AddLog(ctx, username, kiosk.Activity{Name: kiosk.ActivitySessionInvalidated,
		Data: map[string]interface{}{"session_id": "0123abcd..."}}))
	assert.NoError(store.AddLog(ctx, "Someone Else", kiosk.Activity{Name: kiosk.ActivitySessionCreated}))

	{
		logs, err := store.ByUsername(ctx, username, 100)
		if !assert.NoError(err) || !assert.Equal(2, len(logs)) {
			return
		}
		assert.Equal(kiosk.ActivitySessionInvalidated, logs[0].Name)
		assert.Equal(map[string]interface{}{"session_id": "0123abcd..."}, logs[0].Data)
		assert.Equal(kiosk.ActivitySessionCreated, logs[1].Name)
		assert.Equal(username, logs[1].Username)
	}

	{
		logs, err := store.ByUsername(ctx, username, 1)
		if assert.NoError(err) && assert.Equal(1, len(logs)) {
			assert.Equal(kiosk.ActivitySessionInvalidated, logs[0].Name)
		}
	}
}
