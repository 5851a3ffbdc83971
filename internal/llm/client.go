// Package llm wraps the OpenAI-compatible chat API used for analysis,
// reranking, embeddings and the main chat loop. A configurable base URL
// switches between providers (OpenAI, OpenRouter, local Ollama).
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrNoChoices is returned when the provider responds without choices.
	ErrNoChoices = errors.New("no choices in model response")
	// ErrNotConfigured is returned when no provider is configured.
	ErrNotConfigured = errors.New("language model not configured")
)

// ChatAPI is the provider surface the rest of the system depends on.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Config holds provider settings.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	AnalysisModel  string
	EmbeddingModel string
}

// Client wraps one OpenAI-compatible provider.
type Client struct {
	api ChatAPI
	cfg Config
}

// New creates a Client for the configured provider.
func New(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = cfg.ChatModel
	}
	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: cfg,
	}
}

// NewWithAPI creates a Client over an explicit API implementation. Used by
// tests to substitute a fake provider.
func NewWithAPI(api ChatAPI, cfg Config) *Client {
	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = cfg.ChatModel
	}
	return &Client{api: api, cfg: cfg}
}

// ChatModel returns the configured main chat model name.
func (c *Client) ChatModel() string {
	return c.cfg.ChatModel
}

// Chat runs one chat completion with the main chat model. Tools may be nil.
func (c *Client) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	if c == nil {
		return openai.ChatCompletionMessage{}, ErrNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Model:    c.cfg.ChatModel,
		Messages: messages,
	}
	if len(tools) > 0 {
		req.Tools = tools
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, ErrNoChoices
	}

	return resp.Choices[0].Message, nil
}

// Complete runs one system+user completion with the analysis model and
// returns the raw text. Used for query analysis and reranking.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.AnalysisModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateEmbedding generates an embedding for the given text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}
	if c.cfg.EmbeddingModel == "" {
		return nil, ErrNotConfigured
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}
