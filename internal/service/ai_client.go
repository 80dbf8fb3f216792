package service

import (
	"context"

	"rebot/internal/model"
)

// Assistant answers chat messages. Implementations own their own
// conversation history keyed by ChatRequest.SessionID and return the
// session id they used.
type Assistant interface {
	Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
}

// StreamingAssistant can also deliver the reply incrementally. onDelta
// receives each content fragment in order; the returned response holds
// the full text.
type StreamingAssistant interface {
	Assistant
	ChatStream(ctx context.Context, req model.ChatRequest, onDelta func(delta string) error) (*model.ChatResponse, error)
}

// StreamChunk is one decoded fragment of a streaming completion
type StreamChunk struct {
	// Content is the visible reply text
	Content string

	// ThinkingContent is reasoning text some providers stream separately
	ThinkingContent string

	Role string
	Done bool
}

var (
	_ StreamingAssistant = (*OpenAIAssistant)(nil)
	_ Assistant          = (*RemoteAssistant)(nil)
)
