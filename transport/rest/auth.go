package rest

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kioskmvp/kiosk"
)

const (
	sessionLocalsKey = "session"

	detailAuthenticationRequired = "Authentication required"
	detailInvalidSession         = "Invalid or expired session"
)

type AuthController struct {
	SessionStore  kiosk.SessionStore
	ActivityStore kiosk.ActivityStore
	Clock         kiosk.Clock
}

func (c *AuthController) InstallTo(app fiber.Router) {
	app.Post("/auth/login", c.serveLogin)
	app.Post("/auth/logout", c.serveLogout)
	app.Get("/auth/validate", combineHandlers(RequestAuthorizer(c.SessionStore), c.serveValidate))
}

type LoginResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Username  string `json:"username,omitempty"`
	SessionId string `json:"session_id,omitempty"`
}

func (c *AuthController) serveLogin(ctx *fiber.Ctx) error {
	body := struct {
		Username string `json:"username"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		RequestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	RequestLog(ctx).WithField("username", body.Username).Infoln("Login attempt.")

	err := sweepExpired(ctx, c.SessionStore, c.ActivityStore, clockNow(c.Clock))
	if err != nil {
		return err
	}

	username, err := kiosk.ValidateUsername(body.Username)
	if err != nil {
		RequestLog(ctx).
			WithField("username", body.Username).
			WithField("reason", err.Error()).
			Infoln("Login rejected.")
		return ctx.JSON(LoginResponse{Success: false, Message: err.Error()})
	}

	session, err := c.SessionStore.Create(ctx.Context(), username)
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	addActivity(ctx, c.ActivityStore, username, kiosk.Activity{
		Name: kiosk.ActivitySessionCreated,
		Data: map[string]interface{}{
			"session_id": session.TruncatedId(),
			"ip":         ctx.IP(),
		},
	})
	RequestLog(ctx).WithField("username", username).Infoln("Login successful.")

	return ctx.JSON(LoginResponse{
		Success:   true,
		Message:   "Access granted",
		Username:  session.Username,
		SessionId: session.Id,
	})
}

func (c *AuthController) serveLogout(ctx *fiber.Ctx) error {
	type LogoutResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	if token, ok := bearerToken(ctx); ok {
		session, removed, err := c.SessionStore.Invalidate(ctx.Context(), token)
		if err != nil {
			return fmt.Errorf("session invalidate: %w", err)
		}
		if removed {
			addActivity(ctx, c.ActivityStore, session.Username, kiosk.Activity{
				Name: kiosk.ActivitySessionInvalidated,
				Data: map[string]interface{}{
					"session_id": session.TruncatedId(),
					"ip":         ctx.IP(),
				},
			})
			RequestLog(ctx).WithField("username", session.Username).Infoln("Logout successful.")
			return ctx.JSON(LogoutResponse{Success: true, Message: "Logged out successfully"})
		}
	}
	return ctx.JSON(LogoutResponse{Success: true, Message: "Session not found or already expired"})
}

func (c *AuthController) serveValidate(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(kiosk.Session)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, detailAuthenticationRequired)
	}
	return ctx.JSON(map[string]interface{}{
		"valid":      true,
		"username":   session.Username,
		"session_id": session.Id,
	})
}

// RequestAuthorizer resolves the bearer token into a session and stores it in
// the request locals. Missing, unknown or expired tokens end the request with 401.
func RequestAuthorizer(sessionStore kiosk.SessionStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token, ok := bearerToken(ctx)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, detailAuthenticationRequired)
		}

		session, found, err := sessionStore.Validate(ctx.Context(), token)
		if err != nil {
			return fmt.Errorf("validate session: %w", err)
		}
		if !found {
			return fiber.NewError(fiber.StatusUnauthorized, detailInvalidSession)
		}

		RequestLog(ctx).
			WithField("username", session.Username).
			Debugln("Authorized access.")

		ctx.Locals(sessionLocalsKey, session)
		return nil
	}
}

// bearerToken extracts the credentials of a "Bearer <token>" Authorization header.
// Other schemes count as no token at all.
func bearerToken(ctx *fiber.Ctx) (string, bool) {
	auth := strings.TrimSpace(ctx.Get(fiber.HeaderAuthorization))
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func clockNow(clock kiosk.Clock) time.Time {
	if clock == nil {
		return kiosk.SystemClock()
	}
	return clock()
}

// addActivity records an activity log entry. Failures are only logged,
// the activity log never decides the outcome of a request.
func addActivity(ctx *fiber.Ctx, store kiosk.ActivityStore, username string, activity kiosk.Activity) {
	if store == nil {
		return
	}
	if err := store.AddLog(ctx.Context(), username, activity); err != nil {
		RequestLog(ctx).
			WithError(err).
			WithField("username", username).
			WithField("activity", activity.Name).
			Warningln("Could not add activity log.")
	}
}
