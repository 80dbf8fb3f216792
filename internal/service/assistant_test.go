package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rebot/internal/config"
	"rebot/internal/model"
)

// fakeOpenAI records every request and answers with canned replies
type fakeOpenAI struct {
	mu       sync.Mutex
	requests []ChatCompletionRequest
	reply    string
}

func (f *fakeOpenAI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id":"c1","model":%q,"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, req.Model, f.reply)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, word := range strings.SplitAfter(f.reply, " ") {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", word)
		}
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func (f *fakeOpenAI) last() ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakeOpenAI) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return NewOpenAIClient(&config.OpenAIConfig{
		APIKey:        "sk-test",
		APIBase:       srv.URL,
		ChatModel:     "test-model",
		ChatMaxTokens: 256,
		ChatExtraBody: `{"chat_template_kwargs":{"thinking":false}}`,
		Timeout:       5 * time.Second,
		Enabled:       true,
	}, zaptest.NewLogger(t))
}

func TestOpenAIAssistant_KeepsHistory(t *testing.T) {
	fake := &fakeOpenAI{reply: "Check the [[market trends]] for 02134."}
	a := NewOpenAIAssistant(newTestClient(t, fake), 2, zaptest.NewLogger(t))
	ctx := context.Background()

	fc, _ := json.Marshal(model.FeatureContext{Features: &model.FeatureExtraction{QueryType: model.QueryMarketInfo}})
	first, err := a.Chat(ctx, model.ChatRequest{Message: "How is the market?", FeatureContext: string(fc), ZipCode: "02134"})
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, fake.reply, first.Response)

	req := fake.last()
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	assert.NotNil(t, req.ExtraBody)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "REbot")
	assert.Contains(t, req.Messages[0].Content, "market_info question")
	assert.Contains(t, req.Messages[0].Content, "[[market trends]]")
	assert.Contains(t, req.Messages[0].Content, "ZIP code 02134")

	for i := 0; i < 3; i++ {
		_, err = a.Chat(ctx, model.ChatRequest{Message: fmt.Sprintf("follow up %d", i), SessionID: first.SessionID})
		require.NoError(t, err)
	}
	// system + 2 remembered exchanges + the new message
	req = fake.last()
	require.Len(t, req.Messages, 6)
	assert.Equal(t, "follow up 0", req.Messages[1].Content)
	assert.Equal(t, "follow up 2", req.Messages[5].Content)

	a.Forget(first.SessionID)
	again, err := a.Chat(ctx, model.ChatRequest{Message: "hi", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, again.SessionID)
}

func TestOpenAIAssistant_SystemQueryBypassesHistory(t *testing.T) {
	fake := &fakeOpenAI{reply: `["a?","b?","c?"]`}
	a := NewOpenAIAssistant(newTestClient(t, fake), 10, zaptest.NewLogger(t))

	out, err := SystemAsker{Assistant: a}.Ask(context.Background(), "give me three questions")
	require.NoError(t, err)
	assert.Equal(t, fake.reply, out)

	req := fake.last()
	require.Len(t, req.Messages, 2)
	assert.Equal(t, systemQueryPrompt, req.Messages[0].Content)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, h := range a.histories {
		assert.Empty(t, h)
	}
}

func TestOpenAIAssistant_Stream(t *testing.T) {
	fake := &fakeOpenAI{reply: "See the [[schools]] tab for ratings."}
	a := NewOpenAIAssistant(newTestClient(t, fake), 10, zaptest.NewLogger(t))

	var deltas []string
	resp, err := a.ChatStream(context.Background(), model.ChatRequest{Message: "schools?"}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, fake.last().Stream)
	assert.Greater(t, len(deltas), 1)
	assert.Equal(t, fake.reply, strings.Join(deltas, ""))
	assert.Equal(t, fake.reply, resp.Response)
}

func TestOpenAIClient_Disabled(t *testing.T) {
	c := NewOpenAIClient(&config.OpenAIConfig{}, nil)
	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{})
	assert.ErrorIs(t, err, ErrAIDisabled)
}

func TestOpenAIClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient(&config.OpenAIConfig{APIKey: "k", APIBase: srv.URL, Enabled: true, Timeout: time.Second}, zaptest.NewLogger(t))
	_, err := c.Complete(context.Background(), "sys", "user", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestParserFor(t *testing.T) {
	assert.IsType(t, &ReasoningStreamChunkParser{}, ParserFor("https://integrate.api.nvidia.com/v1"))
	assert.IsType(t, &OpenAIStreamChunkParser{}, ParserFor("https://api.openai.com/v1"))

	chunk, err := (&ReasoningStreamChunkParser{}).ParseChunk([]byte(`{"choices":[{"delta":{"reasoning_content":"hmm","content":""},"finish_reason":"stop"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hmm", chunk.ThinkingContent)
	assert.True(t, chunk.Done)
}

func TestRemoteAssistant(t *testing.T) {
	var got model.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.Message == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":"LLM not initialized","response":"Error: LLM service is not available"}`)
			return
		}
		fmt.Fprintf(w, `{"session_id":"s-1","response":"Hello from %s","extracted_features":{"queryType":"general"}}`, got.ZipCode)
	}))
	defer srv.Close()

	a := NewRemoteAssistant(srv.URL, time.Second, zaptest.NewLogger(t))

	resp, err := a.Chat(context.Background(), model.ChatRequest{Message: "hi", ZipCode: "60616", FeatureContext: "{}", LocationContext: "{}"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Equal(t, "Hello from 60616", resp.Response)
	require.NotNil(t, resp.ExtractedFeatures)
	assert.Equal(t, model.QueryGeneral, resp.ExtractedFeatures.QueryType)
	assert.Equal(t, "{}", got.FeatureContext)

	_, err = a.Chat(context.Background(), model.ChatRequest{Message: "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM not initialized")
}

func TestRemoteAssistant_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := NewRemoteAssistant(srv.URL, 50*time.Millisecond, nil)
	_, err := a.Chat(context.Background(), model.ChatRequest{Message: "hi"})
	assert.Error(t, err)
}
