package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// keepAlive is how often an idle event stream sends a comment line so
// proxies do not drop it.
const keepAlive = 25 * time.Second

// sseStream writes Server-Sent Events to one client.
type sseStream struct {
	c echo.Context
}

func openSSE(c echo.Context) *sseStream {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()
	return &sseStream{c: c}
}

func (s *sseStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.c.Response(), "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.c.Response().Flush()
	return nil
}

func (s *sseStream) ping() error {
	if _, err := fmt.Fprint(s.c.Response(), ": ping\n\n"); err != nil {
		return err
	}
	s.c.Response().Flush()
	return nil
}
