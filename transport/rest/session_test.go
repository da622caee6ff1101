package rest

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kioskmvp/kiosk"
	"github.com/stretchr/testify/assert"
)

func TestSessionStatus(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	server := newTestServer()

	_, body := server.do(t, "GET", "/api/auth/status", "", nil)
	assert.Equal(`{"active_sessions":0,"authentication_type":"username_only","recent_sessions":0,"system_status":"operational"}`, body)

	idle, err := server.sessions.Create(ctx, "Idle User")
	if !assert.NoError(err) {
		return
	}
	active, err := server.sessions.Create(ctx, "Active User")
	if !assert.NoError(err) {
		return
	}

	server.advance(2 * time.Hour)
	_, _, err = server.sessions.Validate(ctx, active.Id)
	assert.NoError(err)

	_, body = server.do(t, "GET", "/api/auth/status", "", nil)
	status := decodeJson(t, body)
	assert.Equal(float64(2), status["active_sessions"])
	assert.Equal(float64(1), status["recent_sessions"])

	// idle session crosses the idle timeout, active one does not
	server.advance(kiosk.IdleTimeout - time.Hour)
	_, body = server.do(t, "GET", "/api/auth/status", "", nil)
	status = decodeJson(t, body)
	assert.Equal(float64(1), status["active_sessions"])
	assert.Equal(float64(0), status["recent_sessions"])

	_, found, err := server.sessions.Validate(ctx, idle.Id)
	assert.NoError(err)
	assert.False(found)

	logs, err := server.activities.ByUsername(ctx, "Idle User", 1)
	if assert.NoError(err) && assert.Len(logs, 1) {
		assert.Equal(kiosk.ActivitySessionExpired, logs[0].Name)
		assert.Equal(idle.TruncatedId(), logs[0].Data["session_id"])
	}
}

func TestSessionListing(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	server := newTestServer()

	first, err := server.sessions.Create(ctx, "Jean-Pierre")
	if !assert.NoError(err) {
		return
	}
	server.advance(30 * time.Minute)
	second, err := server.sessions.Create(ctx, "Jean-Pierre")
	if !assert.NoError(err) {
		return
	}
	server.advance(15*time.Minute + 30*time.Second)

	resp, body := server.do(t, "GET", "/api/auth/sessions", "", nil)
	assert.Equal(fiber.StatusOK, resp.StatusCode)
	assert.Equal(`{"active_sessions":[`+
		`{"session_id":"`+first.Id[:8]+`...","username":"Jean-Pierre","created_at":"2024-01-15T10:30:00Z",`+
		`"last_activity":"2024-01-15T10:30:00Z","duration_minutes":45},`+
		`{"session_id":"`+second.Id[:8]+`...","username":"Jean-Pierre","created_at":"2024-01-15T11:00:00Z",`+
		`"last_activity":"2024-01-15T11:00:00Z","duration_minutes":15}],"total_count":2}`,
		body)
	assert.NotContains(body, first.Id)
	assert.NotContains(body, second.Id)
}

func TestSessionListingEmpty(t *testing.T) {
	assert := assert.New(t)
	server := newTestServer()

	_, body := server.do(t, "GET", "/api/auth/sessions", "", nil)
	assert.Equal(`{"active_sessions":[],"total_count":0}`, body)
}
