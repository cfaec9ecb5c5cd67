package classifier

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
)

// openaiClient implements Client. Embeddings are served by the separate
// EmbeddingClient type below.
type openaiClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a Client backed by sashabaranov/go-openai.
func NewOpenAIClient(cfg config.LLMConfig) Client {
	return &openaiClient{
		client: openai.NewClient(cfg.OpenAIKey),
		model:  cfg.OpenAIModel,
	}
}

func (c *openaiClient) Classify(ctx context.Context, req Request) (domain.Classification, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("openai classify request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("openai classify request returned no choices")
	}

	return ParseResponse(resp.Choices[0].Message.Content)
}

// EmbeddingClient wraps the OpenAI embeddings endpoint, used by Storm
// Shield for near-duplicate detection regardless of which provider the
// classifier itself uses.
type EmbeddingClient struct {
	client *openai.Client
}

// NewEmbeddingClient builds the embedding backend.
func NewEmbeddingClient(cfg config.LLMConfig) *EmbeddingClient {
	return &EmbeddingClient{client: openai.NewClient(cfg.OpenAIKey)}
}

func (e *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding request returned no data")
	}
	return resp.Data[0].Embedding, nil
}

// NewClient selects the configured backend.
func NewClient(cfg config.LLMConfig) Client {
	if cfg.Provider == "openai" {
		return NewOpenAIClient(cfg)
	}
	return NewAnthropicClient(cfg)
}
