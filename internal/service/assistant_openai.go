package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rebot/internal/links"
	"rebot/internal/model"
)

const systemQueryPrompt = "You are a system processing component for real estate queries."

// Completer is the part of OpenAIClient the assistant needs
type Completer interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
	ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error
}

type exchange struct {
	user, bot string
}

// OpenAIAssistant is the REbot persona served directly from an
// OpenAI-compatible model. History is kept per session in memory.
type OpenAIAssistant struct {
	client       Completer
	historyLimit int
	log          *zap.Logger

	mu        sync.Mutex
	histories map[string][]exchange
}

// NewOpenAIAssistant creates an assistant that keeps the last
// historyLimit exchanges of each session.
func NewOpenAIAssistant(client Completer, historyLimit int, logger *zap.Logger) *OpenAIAssistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &OpenAIAssistant{
		client:       client,
		historyLimit: historyLimit,
		log:          logger.Named("assistant"),
		histories:    make(map[string][]exchange),
	}
}

// Chat answers one message
func (a *OpenAIAssistant) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	return a.ChatStream(ctx, req, nil)
}

// ChatStream answers one message, forwarding deltas to onDelta when it is
// non-nil
func (a *OpenAIAssistant) ChatStream(ctx context.Context, req model.ChatRequest, onDelta func(string) error) (*model.ChatResponse, error) {
	sessionID := a.session(req.SessionID)
	messages := a.messages(sessionID, req)

	var (
		reply string
		err   error
	)
	if onDelta == nil {
		var resp *ChatCompletionResponse
		resp, err = a.client.ChatCompletion(ctx, ChatCompletionRequest{Messages: messages})
		if err == nil {
			reply, err = resp.Content()
		}
	} else {
		var b strings.Builder
		err = a.client.ChatCompletionStream(ctx, ChatCompletionRequest{Messages: messages}, func(chunk *StreamChunk) error {
			if chunk.Content == "" {
				return nil
			}
			b.WriteString(chunk.Content)
			return onDelta(chunk.Content)
		})
		reply = b.String()
	}
	if err != nil {
		return nil, fmt.Errorf("assistant completion: %w", err)
	}

	if !req.IsSystemQuery {
		a.remember(sessionID, req.Message, reply)
	}
	a.log.Debug("assistant replied",
		zap.String("session_id", sessionID),
		zap.Bool("system_query", req.IsSystemQuery),
		zap.Int("reply_len", len(reply)))

	return &model.ChatResponse{SessionID: sessionID, Response: reply}, nil
}

// Forget drops the history of a session
func (a *OpenAIAssistant) Forget(sessionID string) {
	a.mu.Lock()
	delete(a.histories, sessionID)
	a.mu.Unlock()
}

func (a *OpenAIAssistant) session(id string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id != "" {
		if _, ok := a.histories[id]; ok {
			return id
		}
	}
	id = uuid.NewString()
	a.histories[id] = nil
	return id
}

func (a *OpenAIAssistant) remember(sessionID, user, bot string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := append(a.histories[sessionID], exchange{user: user, bot: bot})
	if len(h) > a.historyLimit {
		h = h[len(h)-a.historyLimit:]
	}
	a.histories[sessionID] = h
}

func (a *OpenAIAssistant) messages(sessionID string, req model.ChatRequest) []ChatMessage {
	if req.IsSystemQuery {
		return []ChatMessage{
			{Role: RoleSystem, Content: systemQueryPrompt},
			{Role: RoleUser, Content: req.Message},
		}
	}

	out := []ChatMessage{{Role: RoleSystem, Content: SystemPrompt(req)}}
	a.mu.Lock()
	for _, ex := range a.histories[sessionID] {
		out = append(out,
			ChatMessage{Role: RoleUser, Content: ex.user},
			ChatMessage{Role: RoleAssistant, Content: ex.bot})
	}
	a.mu.Unlock()
	return append(out, ChatMessage{Role: RoleUser, Content: req.Message})
}

// SystemPrompt builds the REbot persona prompt for a chat request
func SystemPrompt(req model.ChatRequest) string {
	queryType := model.QueryGeneral
	var fc model.FeatureContext
	if req.FeatureContext != "" && json.Unmarshal([]byte(req.FeatureContext), &fc) == nil && fc.Features != nil {
		if fc.Features.QueryType.Valid() {
			queryType = fc.Features.QueryType
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert real estate assistant named REbot. You are handling a %s question.", queryType)
	b.WriteString(" You help users search for properties, track market trends and answer legal questions related to real estate.")
	b.WriteString(" If you don't know the answer, say so instead of making up information.\n\n")
	b.WriteString(links.PromptVocabulary())
	if req.ZipCode != "" {
		fmt.Fprintf(&b, "\n\nThe user is looking at ZIP code %s.", req.ZipCode)
	}
	if req.FeatureContext != "" {
		fmt.Fprintf(&b, "\n\nExtracted features: %s", req.FeatureContext)
	}
	if req.LocationContext != "" {
		fmt.Fprintf(&b, "\n\nLocation context: %s", req.LocationContext)
	}
	return b.String()
}
