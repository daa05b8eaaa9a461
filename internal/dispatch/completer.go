package dispatch

import (
	"context"
	"fmt"

	"github.com/KafClaw/commander/internal/provider"
)

// ChatCompleter answers freeform prompts with a single-turn chat completion.
type ChatCompleter struct {
	Provider     provider.LLMProvider
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Complete sends the system prompt and the user's text to the provider.
func (c *ChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	model := c.Model
	if model == "" {
		model = c.Provider.DefaultModel()
	}
	var msgs []provider.Message
	if c.SystemPrompt != "" {
		msgs = append(msgs, provider.Message{Role: "system", Content: c.SystemPrompt})
	}
	msgs = append(msgs, provider.Message{Role: "user", Content: prompt})

	resp, err := c.Provider.Chat(ctx, &provider.ChatRequest{
		Messages:    msgs,
		Model:       model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return resp.Content, nil
}
