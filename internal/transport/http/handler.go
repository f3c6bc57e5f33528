package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hollisb/patter/internal/domain"
	"github.com/hollisb/patter/internal/emit"
	"github.com/hollisb/patter/internal/hub"
	"github.com/hollisb/patter/internal/logger"
	"github.com/hollisb/patter/internal/service"
	"github.com/hollisb/patter/internal/tools"
)

var log = logger.Named("http")

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	registry *tools.Registry
	hub      *hub.Hub
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, registry *tools.Registry, h *hub.Hub) *Handler {
	return &Handler{
		service:  svc,
		registry: registry,
		hub:      h,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/chat", h.Chat)
	e.GET("/v1/tools", h.ListTools)
	e.GET("/v1/ws", h.HandleWebSocket)
	e.GET("/health", h.Health)
}

// ChatRequest is the body of POST /v1/chat. Session carries the snapshot
// from a previous exchange to continue it; omitting it starts fresh.
type ChatRequest struct {
	Prompt  string          `json:"prompt"`
	Session *domain.Session `json:"session,omitempty"`
}

// Chat runs one exchange and streams its events as newline-delimited JSON.
// Each line is flushed as soon as it is produced.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)

	var em emit.Emitter = emit.NewLineWriter(resp)
	if h.hub != nil {
		em = emit.NewTee(em, h.hub)
	}

	if _, err := h.service.RunExchange(c.Request().Context(), req.Session, req.Prompt, em); err != nil {
		// The terminal error event is already on the wire (or the client is
		// gone); the committed status cannot change now.
		log.Warnf("chat exchange ended with error: %v", err)
	}
	return nil
}

// ListTools returns the manifests of every registered tool.
// GET /v1/tools
func (h *Handler) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"tools": h.registry.Manifests(),
	})
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
