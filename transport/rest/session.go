package rest

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kioskmvp/kiosk"
)

type SessionController struct {
	Store         kiosk.SessionStore
	ActivityStore kiosk.ActivityStore
	Clock         kiosk.Clock
}

func (c *SessionController) InstallTo(app fiber.Router) {
	app.Get("/auth/status", c.serveStatus)
	app.Get("/auth/sessions", c.serveSessions)
}

func (c *SessionController) serveStatus(ctx *fiber.Ctx) error {
	now := clockNow(c.Clock)
	if err := sweepExpired(ctx, c.Store, c.ActivityStore, now); err != nil {
		return err
	}

	sessions, err := c.Store.Sessions(ctx.Context())
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	recent := 0
	for _, session := range sessions {
		if session.ActiveWithin(now, kiosk.RecentWindow) {
			recent++
		}
	}

	return ctx.JSON(map[string]interface{}{
		"authentication_type": "username_only",
		"active_sessions":     len(sessions),
		"recent_sessions":     recent,
		"system_status":       "operational",
	})
}

func (c *SessionController) serveSessions(ctx *fiber.Ctx) error {
	now := clockNow(c.Clock)
	if err := sweepExpired(ctx, c.Store, c.ActivityStore, now); err != nil {
		return err
	}

	sessions, err := c.Store.Sessions(ctx.Context())
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	// never expose full tokens, they grant access.
	type SessionMeta struct {
		SessionId       string `json:"session_id"`
		Username        string `json:"username"`
		CreatedAt       string `json:"created_at"`
		LastActivity    string `json:"last_activity"`
		DurationMinutes int64  `json:"duration_minutes"`
	}
	publicInfos := make([]SessionMeta, len(sessions))
	for i, session := range sessions {
		publicInfos[i] = SessionMeta{
			SessionId:       session.TruncatedId(),
			Username:        session.Username,
			CreatedAt:       session.CreatedAt.Format(time.RFC3339),
			LastActivity:    session.LastActivity.Format(time.RFC3339),
			DurationMinutes: int64(now.Sub(session.CreatedAt) / time.Minute),
		}
	}
	return ctx.JSON(map[string]interface{}{
		"active_sessions": publicInfos,
		"total_count":     len(publicInfos),
	})
}

// sweepExpired runs the opportunistic expiry pass and records every removed session.
func sweepExpired(ctx *fiber.Ctx, store kiosk.SessionStore, activityStore kiosk.ActivityStore, now time.Time) error {
	expired, err := store.SweepExpired(ctx.Context(), now)
	if err != nil {
		return fmt.Errorf("sweep expired sessions: %w", err)
	}
	for _, session := range expired {
		RequestLog(ctx).
			WithField("username", session.Username).
			WithField("session_id", session.TruncatedId()).
			Infoln("Session expired.")
		addActivity(ctx, activityStore, session.Username, kiosk.Activity{
			Name: kiosk.ActivitySessionExpired,
			Data: map[string]interface{}{
				"session_id":    session.TruncatedId(),
				"last_activity": session.LastActivity.Format(time.RFC3339),
			},
		})
	}
	return nil
}
