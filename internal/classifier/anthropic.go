package classifier

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
)

// anthropicClient implements Client against the Anthropic Messages API.
type anthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient builds a Client backed by anthropic-sdk-go.
func NewAnthropicClient(cfg config.LLMConfig) Client {
	return &anthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(cfg.AnthropicKey)),
		model:  cfg.AnthropicModel,
	}
}

func (c *anthropicClient) Classify(ctx context.Context, req Request) (domain.Classification, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(req))),
		},
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("anthropic classify request failed: %w", err)
	}

	var raw string
	for _, block := range msg.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}

	return ParseResponse(raw)
}
