package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rebot/internal/links"
	"rebot/internal/model"
	"rebot/internal/render"
	"rebot/internal/session"
)

// SessionHandler serves the chat session endpoints
type SessionHandler struct {
	sessions *session.Manager
	log      *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Manager, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, log: logger.Named("handler")}
}

// Register mounts the session routes on an API group
func (h *SessionHandler) Register(r gin.IRouter) {
	r.POST("/sessions", h.Create)
	r.GET("/sessions/:id", h.Get)
	r.DELETE("/sessions/:id", h.Delete)
	r.POST("/sessions/:id/messages", h.SendMessage)
	r.POST("/sessions/:id/messages/stream", h.SendMessageStream)
	r.GET("/sessions/:id/messages/:mid/render", h.Render)
	r.POST("/sessions/:id/messages/:mid/links/:index", h.ActivateLink)
	r.POST("/sessions/:id/navigate", h.Navigate)
	r.PUT("/sessions/:id/zip", h.SetZipCode)
	r.PUT("/sessions/:id/tab", h.SetTab)
	r.PUT("/sessions/:id/property", h.SelectProperty)
	r.DELETE("/sessions/:id/property", h.ClearProperty)
	r.POST("/sessions/:id/property/:zpid/chat", h.OpenPropertyChat)
	r.GET("/sessions/:id/questions", h.Questions)
	r.GET("/sessions/:id/events", h.Events)
	r.POST("/sessions/:id/export", h.Export)
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	s, err := h.sessions.Create()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.CreateSessionResponse{
		SessionID: s.ID(),
		CreatedAt: s.CreatedAt(),
		Messages:  s.Snapshot().Messages,
	})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap := s.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID(),
		"created_at": s.CreatedAt(),
		"state":      snap,
		"ui_context": s.UIContext(),
	})
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendMessage handles POST /api/v1/sessions/:id/messages
func (h *SessionHandler) SendMessage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	start := time.Now()
	msg, err := s.SendMessage(c.Request.Context(), req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SendMessageResponse{
		Message:   msg,
		UIContext: s.UIContext(),
		Took:      time.Since(start).Milliseconds(),
	})
}

// Render handles GET /api/v1/sessions/:id/messages/:mid/render
func (h *SessionHandler) Render(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	mid, err := strconv.ParseInt(c.Param("mid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}
	content, err := s.Render(mid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// ActivateLink handles POST /api/v1/sessions/:id/messages/:mid/links/:index
func (h *SessionHandler) ActivateLink(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	mid, err := strconv.ParseInt(c.Param("mid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link index"})
		return
	}
	res, err := s.ActivateLink(mid, index)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Navigate handles POST /api/v1/sessions/:id/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var a links.Activation
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.Navigate(a))
}

// SetZipCode handles PUT /api/v1/sessions/:id/zip
func (h *SessionHandler) SetZipCode(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req model.SetZipCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := s.SetZipCode(req.ZipCode); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.UIContext())
}

// SetTab handles PUT /api/v1/sessions/:id/tab
func (h *SessionHandler) SetTab(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req model.SetTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := s.SetActiveTab(req.Tab); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.UIContext())
}

// SelectProperty handles PUT /api/v1/sessions/:id/property
func (h *SessionHandler) SelectProperty(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var p model.PropertyRef
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := s.SelectProperty(p); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.UIContext())
}

// ClearProperty handles DELETE /api/v1/sessions/:id/property
func (h *SessionHandler) ClearProperty(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.ClearProperty()
	c.JSON(http.StatusOK, s.UIContext())
}

// OpenPropertyChat handles POST /api/v1/sessions/:id/property/:zpid/chat
func (h *SessionHandler) OpenPropertyChat(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.OpenPropertyChat(c.Param("zpid")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, s.UIContext())
}

// Questions handles GET /api/v1/sessions/:id/questions
func (h *SessionHandler) Questions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": s.Questions()})
}

// Export handles POST /api/v1/sessions/:id/export
func (h *SessionHandler) Export(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	resp, err := s.Export(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return s, true
}

// fail writes err with the status its sentinel maps to
func (h *SessionHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrMessageNotFound),
		errors.Is(err, render.ErrLinkNotBound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidZipCode),
		errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, session.ErrInvalidProperty),
		errors.Is(err, session.ErrInvalidTab):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrExportDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
