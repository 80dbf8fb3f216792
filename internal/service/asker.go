package service

import (
	"context"
	"fmt"

	"rebot/internal/model"
)

// SystemAsker sends one-off prompts to an assistant as system queries.
// System queries bypass the conversation history.
type SystemAsker struct {
	Assistant Assistant
}

// Ask returns the assistant's raw reply to prompt
func (s SystemAsker) Ask(ctx context.Context, prompt string) (string, error) {
	if s.Assistant == nil {
		return "", fmt.Errorf("no assistant configured")
	}
	resp, err := s.Assistant.Chat(ctx, model.ChatRequest{Message: prompt, IsSystemQuery: true})
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("assistant error: %s", resp.Error)
	}
	return resp.Response, nil
}
