package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"wfengine/internal/config"
	"wfengine/internal/taskerr"
)

// OpenAIClient implements Client against an OpenAI-compatible chat
// completions endpoint. Safe for concurrent use as long as its model name
// is not mutated after construction.
type OpenAIClient struct {
	client openai.Client
	model  string
	mu     sync.Mutex
}

// New builds an OpenAIClient from the engine's LLM configuration.
func New(cfg config.LLMConfig) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (c *OpenAIClient) Chat(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	if params.Model == "" {
		params.Model = shared.ChatModel(c.model)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.wrapError(err)
	}
	return resp, nil
}

func (c *OpenAIClient) SimpleTextQuery(ctx context.Context, systemPrompt, userInput string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userInput))

	resp, err := c.Chat(ctx, openai.ChatCompletionNewParams{Messages: messages})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", taskerr.NewRuntimeError("llm returned no choices", fmt.Errorf("empty completion"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping sends a minimal request to verify the endpoint and credentials are
// reachable, for startup smoke-testing.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	slog.Info("checking llm connection")
	_, err := c.Chat(ctx, openai.ChatCompletionNewParams{
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage("ping")},
		MaxTokens: openai.Int(1),
	})
	if err != nil {
		return fmt.Errorf("llm ping failed: %w", err)
	}
	slog.Info("llm connection verified")
	return nil
}

// wrapError classifies OpenAI API errors into taskerr's API kind so the
// resilience retrier can decide retryability from status code alone.
func (c *OpenAIClient) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return taskerr.NewAPIError(apiErr.StatusCode, err)
	}
	return taskerr.NewRuntimeError("llm request failed", err)
}
