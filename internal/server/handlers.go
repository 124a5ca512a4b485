package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"linkguard/internal/core"
	"linkguard/internal/notify"
	"linkguard/internal/router"
)

// eventBuffer is the per-subscriber event queue depth. Slow consumers drop
// events rather than stall the publisher.
const eventBuffer = 16

// Handler holds the HTTP handlers
type Handler struct {
	router *router.Router
	events *notify.Broadcaster
}

// NewHandler creates a new handler
func NewHandler(r *router.Router, events *notify.Broadcaster) *Handler {
	return &Handler{
		router: r,
		events: events,
	}
}

// Message handles POST /api/v1/message
func (h *Handler) Message(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return handleError(c, core.NewMessagingError("failed to read message body", err))
	}
	if !json.Valid(body) {
		return handleError(c, core.NewMessagingError("message body is not valid JSON", nil))
	}

	payload, err := h.router.Dispatch(c.Request().Context(), body)
	if err != nil {
		return handleError(c, err)
	}
	if payload == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, payload)
}

// Events handles GET /api/v1/events, streaming state-change events to UI
// surfaces as server-sent events.
func (h *Handler) Events(c echo.Context) error {
	events, cancel := h.events.Subscribe(eventBuffer)
	defer cancel()

	res := c.Response()
	res.Header().Set("Content-Type", "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Action, data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// BlockedPage handles GET /blocked, the page users land on when navigation
// to a malicious site is intercepted.
func (h *Handler) BlockedPage(c echo.Context) error {
	blocked := c.QueryParam("url")
	return c.HTML(http.StatusOK, blockedPageHTML(blocked))
}

func blockedPageHTML(blocked string) string {
	detail := "The page you tried to visit was classified as malicious and has been blocked."
	if blocked != "" {
		detail = fmt.Sprintf("<code>%s</code> was classified as malicious and has been blocked.", html.EscapeString(blocked))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Site Blocked</title>
<style>
body { font-family: system-ui, sans-serif; background: #1a1a2e; color: #eee; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
.card { max-width: 32rem; padding: 2rem; background: #16213e; border-radius: 12px; text-align: center; }
h1 { color: #e94560; }
code { word-break: break-all; }
</style>
</head>
<body>
<div class="card">
<h1>&#9888; Site Blocked</h1>
<p>%s</p>
<p>If you believe this is a mistake, you can adjust protection in your settings.</p>
</div>
</body>
</html>`, detail)
}

// handleError converts service errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var scanErr *core.ScanError
	if errors.As(err, &scanErr) {
		return c.JSON(scanErr.HTTPStatusCode(), scanErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
