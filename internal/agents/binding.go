package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel is the narrow slice of an eino chat model the decider needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Provider selects which API a model binding talks to. Gemini and Grok are
// reached through their OpenAI-compatible endpoints.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderDeepSeek Provider = "deepseek"
	ProviderGemini   Provider = "gemini"
	ProviderGrok     Provider = "grok"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	grokBaseURL   = "https://api.x.ai/v1"
)

// ModelBinding names a concrete model at a concrete provider.
type ModelBinding struct {
	Provider Provider
	Model    string
}

// Credentials holds the per-provider API keys. A missing key disables that
// provider at binding time, not at call time.
type Credentials struct {
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	DeepSeekAPIKey string
	GeminiAPIKey   string
	GrokAPIKey     string
}

// NewChatModel builds the eino chat model for a binding. All providers
// except DeepSeek go through the OpenAI-compatible client.
func NewChatModel(ctx context.Context, binding ModelBinding, creds Credentials) (ChatModel, error) {
	maxTokens := 2000

	switch binding.Provider {
	case ProviderOpenAI:
		if creds.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   creds.OpenAIBaseURL,
			APIKey:    creds.OpenAIAPIKey,
			Model:     binding.Model,
			MaxTokens: &maxTokens,
		})

	case ProviderDeepSeek:
		if creds.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("DeepSeek API key not configured")
		}
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    creds.DeepSeekAPIKey,
			Model:     binding.Model,
			MaxTokens: maxTokens,
		})

	case ProviderGemini:
		if creds.GeminiAPIKey == "" {
			return nil, fmt.Errorf("Gemini API key not configured")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   geminiBaseURL,
			APIKey:    creds.GeminiAPIKey,
			Model:     binding.Model,
			MaxTokens: &maxTokens,
		})

	case ProviderGrok:
		if creds.GrokAPIKey == "" {
			return nil, fmt.Errorf("Grok API key not configured")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   grokBaseURL,
			APIKey:    creds.GrokAPIKey,
			Model:     binding.Model,
			MaxTokens: &maxTokens,
		})

	default:
		return nil, fmt.Errorf("unknown model provider %q", binding.Provider)
	}
}
