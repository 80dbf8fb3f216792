package service

import (
	"encoding/json"
	"strings"
)

// StreamChunkParser decodes one provider-specific SSE data payload
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// OpenAIStreamChunkParser parses standard OpenAI-format streaming chunks
type OpenAIStreamChunkParser struct{}

// ParseChunk converts a standard OpenAI chunk to a StreamChunk
func (p *OpenAIStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Role    string `json:"role,omitempty"`
				Content string `json:"content,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		c := raw.Choices[0]
		chunk.Role = c.Delta.Role
		chunk.Content = c.Delta.Content
		chunk.Done = c.FinishReason != ""
	}
	return chunk, nil
}

// ReasoningStreamChunkParser parses chunks from providers that stream
// reasoning_content next to content (NVIDIA, DeepSeek)
type ReasoningStreamChunkParser struct{}

// ParseChunk converts a reasoning-capable chunk to a StreamChunk
func (p *ReasoningStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Role             string  `json:"role,omitempty"`
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		c := raw.Choices[0]
		chunk.Role = c.Delta.Role
		chunk.Content = c.Delta.Content
		if c.Delta.ReasoningContent != nil {
			chunk.ThinkingContent = *c.Delta.ReasoningContent
		}
		chunk.Done = c.FinishReason != ""
	}
	return chunk, nil
}

// ParserFor picks the chunk parser matching an API base URL
func ParserFor(baseURL string) StreamChunkParser {
	switch {
	case strings.Contains(baseURL, "integrate.api.nvidia.com"), strings.Contains(baseURL, "deepseek"):
		return &ReasoningStreamChunkParser{}
	default:
		return &OpenAIStreamChunkParser{}
	}
}
