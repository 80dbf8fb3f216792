package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"rebot/internal/model"
)

// RemoteAssistant talks to an external chat backend over its /api/chat
// contract
type RemoteAssistant struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewRemoteAssistant creates a client for the backend at baseURL
func NewRemoteAssistant(baseURL string, timeout time.Duration, logger *zap.Logger) *RemoteAssistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RemoteAssistant{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.Named("remote_assistant"),
	}
}

// Chat posts the request and decodes the reply. A non-2xx reply whose
// body still carries a response text is returned with an error so the
// caller can decide whether to show it.
func (r *RemoteAssistant) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read chat response: %w", err)
	}

	var out model.ChatResponse
	decodeErr := json.Unmarshal(raw, &out)

	r.log.Debug("chat backend replied",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
		zap.Bool("system_query", req.IsSystemQuery))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("chat backend returned status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", decodeErr)
	}
	return &out, nil
}
