// Package llm wraps the LLM providers used by Deal Signal experiments
// behind one calling convention. Every provider returns the same Response
// shape with token counts and measured latency, which is all the cost
// pipeline needs.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Supported provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config selects a provider and model for a run.
type Config struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`

	// BaseURL overrides the provider endpoint, e.g. to point the openai
	// provider at an OpenAI-compatible gateway.
	BaseURL string `json:"base_url,omitempty"`
}

// Response is the standardized result of one completion call.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	LatencyMs    int64  `json:"latency_ms"`
	Timestamp    string `json:"timestamp"`
	StopReason   string `json:"stop_reason,omitempty"`

	// Cached marks responses served from the response cache rather than
	// the provider. Cached calls cost nothing and produce no cost entry.
	Cached bool `json:"cached,omitempty"`
}

// Client issues completion calls against one configured provider.
type Client interface {
	Complete(ctx context.Context, prompt, system string) (*Response, error)
}

const defaultMaxTokens = 4096

// New builds the client for cfg.Provider. API keys come from the
// environment (OPENAI_API_KEY, ANTHROPIC_API_KEY).
func New(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm config requires a model")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return newOpenAIClient(cfg, key), nil
	case ProviderAnthropic:
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return newAnthropicClient(cfg, key), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: %s, %s)", cfg.Provider, ProviderOpenAI, ProviderAnthropic)
	}
}
