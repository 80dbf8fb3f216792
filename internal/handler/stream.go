package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rebot/internal/model"
)

// eventBuffer is the per-subscriber signal buffer of the events stream
const eventBuffer = 16

// keepAlive is how often an idle events stream sends a comment line
const keepAlive = 15 * time.Second

// SendMessageStream handles POST /api/v1/sessions/:id/messages/stream.
// Events: start, delta (per fragment), message (the stored bot message),
// done; or error.
func (h *SessionHandler) SendMessageStream(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	flusher, ok := startSSE(c)
	if !ok {
		return
	}

	sendSSE(c, "start", map[string]any{"session_id": s.ID()})
	flusher.Flush()

	start := time.Now()
	msg, err := s.SendMessageStream(c.Request.Context(), req.Message, func(delta string) error {
		sendSSE(c, "delta", map[string]any{"content": delta})
		flusher.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		sendSSE(c, "error", map[string]any{"error": err.Error()})
		flusher.Flush()
		return
	}

	sendSSE(c, "message", model.SendMessageResponse{
		Message:   msg,
		UIContext: s.UIContext(),
		Took:      time.Since(start).Milliseconds(),
	})
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}

// Events handles GET /api/v1/sessions/:id/events. Recent signals are
// replayed as one history event, then each new signal is sent as a
// signal event until the client leaves or the session closes.
func (h *SessionHandler) Events(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	history, signals, cancel := s.Watch(eventBuffer)
	defer cancel()

	flusher, ok := startSSE(c)
	if !ok {
		return
	}

	sendSSE(c, "history", history)
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()
		case sig, open := <-signals:
			if !open {
				sendSSE(c, "closed", nil)
				flusher.Flush()
				h.log.Debug("events stream ended with session", zap.String("session_id", s.ID()))
				return
			}
			sendSSE(c, "signal", sig)
			flusher.Flush()
		}
	}
}

// startSSE sets the event-stream headers and returns the flusher
func startSSE(c *gin.Context) (http.Flusher, bool) {
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return nil, false
	}
	c.Status(http.StatusOK)
	return flusher, true
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data == nil {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
		return
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, jsonData)
}
