package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// openaiClient talks to the OpenAI chat completions API, or to any
// OpenAI-compatible endpoint when Config.BaseURL is set.
type openaiClient struct {
	cfg    Config
	client *openai.Client
}

func newOpenAIClient(cfg Config, apiKey string) *openaiClient {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (c *openaiClient) Complete(ctx context.Context, prompt, system string) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	latencyMs := time.Since(start).Milliseconds()

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices for model %q", c.cfg.Model)
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		LatencyMs:    latencyMs,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		StopReason:   string(resp.Choices[0].FinishReason),
	}, nil
}
