package provider

import (
	"errors"

	"github.com/KafClaw/commander/internal/config"
)

// ErrNoSpeech is returned by providers that cannot synthesize audio.
var ErrNoSpeech = errors.New("provider has no speech endpoint")

// Resolve creates the chat provider selected by providers.active. Speech is
// always served by the OpenAI-compatible endpoint.
func Resolve(cfg *config.Config) LLMProvider {
	openai := NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name)
	if cfg.Speech.Model != "" {
		openai.ttsModel = cfg.Speech.Model
	}
	switch cfg.Providers.Active {
	case "xai":
		return NewXAIProvider(cfg.Providers.XAI.APIKey, cfg.Model.Name, openai)
	default:
		return openai
	}
}
