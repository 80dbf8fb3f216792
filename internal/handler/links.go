package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rebot/internal/links"
	"rebot/internal/model"
	"rebot/internal/registry"
)

// LinksHandler publishes the link grammar and the id registry
type LinksHandler struct{}

// NewLinksHandler creates a new links handler
func NewLinksHandler() *LinksHandler {
	return &LinksHandler{}
}

// Register mounts the grammar routes on an API group
func (h *LinksHandler) Register(r gin.IRouter) {
	r.GET("/links/vocabulary", h.Vocabulary)
	r.POST("/links/tokenize", h.Tokenize)
	r.GET("/registry", h.Registry)
}

// Vocabulary handles GET /api/v1/links/vocabulary
func (h *LinksHandler) Vocabulary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tokens": links.Vocabulary(),
		"prompt": links.PromptVocabulary(),
	})
}

// Tokenize handles POST /api/v1/links/tokenize
func (h *LinksHandler) Tokenize(c *gin.Context) {
	var req model.TokenizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	markup := links.Tokenize(req.Text)
	found := links.Extract(markup)
	if found == nil {
		found = []links.RenderedLink{}
	}
	c.JSON(http.StatusOK, gin.H{"html": markup, "links": found})
}

// Registry handles GET /api/v1/registry
func (h *LinksHandler) Registry(c *gin.Context) {
	c.JSON(http.StatusOK, registry.Describe())
}
