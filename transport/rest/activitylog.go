package rest

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/kioskmvp/kiosk"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

type ActivityController struct {
	Store kiosk.ActivityStore
}

func (c *ActivityController) InstallTo(authorizationHandler fiber.Handler, app fiber.Router) {
	app.Get("/auth/activities", c.lastActivityHandler(authorizationHandler))
}

func (c *ActivityController) lastActivityHandler(authorizationHandler fiber.Handler) fiber.Handler {
	return combineHandlers(authorizationHandler, c.serveLastActivity)
}

func (c *ActivityController) serveLastActivity(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(kiosk.Session)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, detailAuthenticationRequired)
	}

	limit := defaultActivityLimit
	if rawLimit := ctx.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}
	if limit <= 0 || limit > maxActivityLimit {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxActivityLimit))
	}

	logs, err := c.Store.ByUsername(ctx.Context(), session.Username, limit)
	if err != nil {
		return fmt.Errorf("get logs by username: %w", err)
	}

	type Log struct {
		Id        int64                  `json:"id"`
		CreatedAt int64                  `json:"createdAt"`
		Name      string                 `json:"name"`
		Data      map[string]interface{} `json:"data,omitempty"`
	}
	mapped := make([]Log, len(logs))
	for i, log := range logs {
		mapped[i] = Log{Id: log.Id, CreatedAt: log.CreatedAt.Unix(), Name: log.Name, Data: log.Data}
	}
	return ctx.JSON(mapped)
}
