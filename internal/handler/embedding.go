package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rebot/internal/repository"
)

// EmbeddingStore writes listing embeddings
type EmbeddingStore interface {
	BatchUpdateEmbeddings(ctx context.Context, items []repository.EmbeddingItem) (int, []string)
}

// EmbeddingBatchRequest is the body of POST /api/v1/embeddings/batch
type EmbeddingBatchRequest struct {
	Embeddings []repository.EmbeddingItem `json:"embeddings" binding:"required,dive"`
}

// EmbeddingBatchResponse reports how many embeddings were stored
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// EmbeddingHandler handles embedding-related HTTP requests
type EmbeddingHandler struct {
	store EmbeddingStore
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(store EmbeddingStore) *EmbeddingHandler {
	return &EmbeddingHandler{store: store}
}

// BatchUpdate handles POST /api/v1/embeddings/batch
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Embeddings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No embeddings provided"})
		return
	}

	for i, item := range req.Embeddings {
		if len(item.Embedding) != repository.EmbeddingDimensions {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid embedding dimension at index %d, expected %d", i, repository.EmbeddingDimensions),
			})
			return
		}
	}

	success, errs := h.store.BatchUpdateEmbeddings(c.Request.Context(), req.Embeddings)

	response := EmbeddingBatchResponse{
		Success: success,
		Failed:  len(req.Embeddings) - success,
		Errors:  errs,
	}

	if len(errs) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
