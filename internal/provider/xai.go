package provider

import (
	"context"
)

const xaiDefaultBase = "https://api.x.ai/v1"

// XAIProvider wraps OpenAIProvider with the xAI/Grok API base URL. xAI has no
// speech endpoint, so Speak is delegated to a separate provider when set.
type XAIProvider struct {
	inner  *OpenAIProvider
	speech LLMProvider
}

// NewXAIProvider creates a provider targeting the xAI API.
func NewXAIProvider(apiKey, defaultModel string, speech LLMProvider) *XAIProvider {
	if defaultModel == "" {
		defaultModel = "grok-3"
	}
	return &XAIProvider{
		inner:  NewOpenAIProvider(apiKey, xaiDefaultBase, defaultModel),
		speech: speech,
	}
}

func (p *XAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return p.inner.Chat(ctx, req)
}

func (p *XAIProvider) Speak(ctx context.Context, req *TTSRequest) (*TTSResponse, error) {
	if p.speech == nil {
		return nil, ErrNoSpeech
	}
	return p.speech.Speak(ctx, req)
}

func (p *XAIProvider) DefaultModel() string {
	return p.inner.DefaultModel()
}
