// Package http provides the HTTP server for the orchestrator.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hollisb/patter/internal/hub"
	"github.com/hollisb/patter/internal/service"
	"github.com/hollisb/patter/internal/tools"
)

// NewServer creates and configures the HTTP server. It serves the chat
// exchange endpoint, the tool manifest listing, the WebSocket observer
// feed, and a health probe.
func NewServer(svc *service.Service, registry *tools.Registry, h *hub.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler := NewHandler(svc, registry, h)
	handler.RegisterRoutes(e)

	return e
}
