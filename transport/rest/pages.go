package rest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
)

const loginPage = "index.html"

// PageController serves the kiosk frontend (html pages and static assets)
// together with the service level health and status endpoints.
type PageController struct {
	FrontendDir string
	Service     string
	Version     string
}

func (c *PageController) pagesDir() string {
	return filepath.Join(c.FrontendDir, "pages")
}

func (c *PageController) assetsDir() string {
	return filepath.Join(c.FrontendDir, "assets")
}

func (c *PageController) InstallTo(app fiber.Router) {
	app.Get("/health", c.serveHealth)
	app.Get("/api/status", c.serveApiStatus)
	app.Get("/api/test", c.serveApiTest)

	app.Get("/", c.pageHandler(loginPage, "Login page not found"))
	app.Get("/index.html", c.pageHandler(loginPage, "Login page not found"))
	app.Get("/dashboard.html", c.pageHandler("dashboard.html",
		"Dashboard page not found - create frontend/pages/dashboard.html"))
	app.Get("/quiz.html", c.pageHandler("quiz.html",
		"Quiz page not found - create frontend/pages/quiz.html"))

	app.Static("/assets", c.assetsDir(), fiber.Static{
		Browse: false,
	})
}

func (c *PageController) serveHealth(ctx *fiber.Ctx) error {
	return ctx.JSON(map[string]interface{}{
		"status":         "healthy",
		"service":        c.Service,
		"version":        c.Version,
		"authentication": "username_only",
	})
}

func (c *PageController) serveApiStatus(ctx *fiber.Ctx) error {
	return ctx.JSON(map[string]interface{}{
		"api":            "running",
		"authentication": "username_only_enabled",
		"frontend":       "connected",
		"features":       []string{"quiz", "session_management", "user_tracking"},
	})
}

// serveApiTest lets the frontend check that it reaches the backend.
func (c *PageController) serveApiTest(ctx *fiber.Ctx) error {
	return ctx.JSON(map[string]interface{}{
		"message":             "Backend is working!",
		"authentication_type": "username_only",
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *PageController) pageHandler(page string, missingDetail string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		return c.sendPage(ctx, page, missingDetail)
	}
}

func (c *PageController) sendPage(ctx *fiber.Ctx, page string, missingDetail string) error {
	path := filepath.Join(c.pagesDir(), page)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fiber.NewError(fiber.StatusNotFound, missingDetail)
		}
		return fmt.Errorf("stat page %s: %w", page, err)
	}
	if err := ctx.SendFile(path); err != nil {
		return fmt.Errorf("send page %s: %w", page, err)
	}
	return nil
}

// NotFoundHandler answers every unmatched route with the login page.
func (c *PageController) NotFoundHandler(ctx *fiber.Ctx) error {
	RequestLog(ctx).Debugln("Route not found, serving login page.")
	return c.sendPage(ctx, loginPage, "Login page not found")
}
