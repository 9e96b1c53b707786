package llm

import (
	"fmt"
	"strings"

	"github.com/comigor/amy/internal/config"
	"github.com/comigor/amy/internal/conversation"
	"github.com/sashabaranov/go-openai"
)

// NewClient creates a new OpenAI client
func NewClient(cfg config.LLMConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return openai.NewClientWithConfig(config)
}

// NewProvider builds the completion provider named by cfg.Provider.
func NewProvider(cfg config.LLMConfig) (conversation.CompletionProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: provider openai needs an api key")
		}
		return NewOpenAI(NewClient(cfg), cfg.Model, cfg.Temperature), nil
	case "", "simulated", "mock":
		return Simulated{}, nil
	case "echo":
		return Echo{}, nil
	case "counting":
		return Counting{}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
