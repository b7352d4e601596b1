// Package llm connects the reasoning capability to an OpenAI compatible
// chat completion API.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/kilianp07/cityguard/core/logger"
	"github.com/kilianp07/cityguard/core/reasoning"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// Config selects the endpoint and model.
type Config struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// SetDefaults fills unset fields. The API key falls back to OPENAI_API_KEY.
func (c *Config) SetDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks the configuration when the reasoner is enabled.
func (c Config) Validate() error {
	if c.Enabled && c.APIKey == "" {
		return fmt.Errorf("llm.api_key or OPENAI_API_KEY is required when llm is enabled")
	}
	return nil
}

// OpenAIReasoner implements reasoning.Reasoner with JSON mode chat
// completions.
type OpenAIReasoner struct {
	client *openai.Client
	model  string
	log    logger.Logger
}

// NewOpenAIReasoner builds a client for cfg.
func NewOpenAIReasoner(cfg Config, log logger.Logger) (*OpenAIReasoner, error) {
	cfg.SetDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: missing api key")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIReasoner{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		log:    logger.OrNop(log),
	}, nil
}

func (o *OpenAIReasoner) Invoke(ctx context.Context, p reasoning.Prompt, out any) error {
	req := openai.ChatCompletionRequest{
		Model:          o.model,
		Messages:       messages(p),
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices", reasoning.ErrInvalidResponse)
	}
	o.log.Debugw("chat completion", map[string]any{
		"model":         o.model,
		"schema":        p.Schema,
		"finish_reason": string(resp.Choices[0].FinishReason),
		"total_tokens":  resp.Usage.TotalTokens,
	})
	return reasoning.DecodeJSON(resp.Choices[0].Message.Content, out)
}

func messages(p reasoning.Prompt) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	if len(p.Images) == 0 {
		return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})
	}
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: p.User}}
	for _, img := range p.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: img.URL, Detail: openai.ImageURLDetailAuto},
		})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
}
