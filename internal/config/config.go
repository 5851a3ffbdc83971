package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Static bearer token for the HTTP API. Empty disables auth.
	AuthToken string `envconfig:"AUTH_TOKEN"`

	// LLM provider settings. BaseURL switches between OpenAI-compatible
	// providers (OpenAI, OpenRouter, a local Ollama endpoint, ...).
	LLMAPIKey      string `envconfig:"LLM_API_KEY"`
	LLMBaseURL     string `envconfig:"LLM_BASE_URL"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	AnalysisModel  string `envconfig:"ANALYSIS_MODEL"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`

	// Content source: a local directory, an HTTP base URL, or an S3 bucket.
	ContentDir     string `envconfig:"CONTENT_DIR"`
	ContentBaseURL string `envconfig:"CONTENT_BASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"arbiter-content"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX"`

	// Retrieval tuning.
	SearchThreshold float64 `envconfig:"SEARCH_THRESHOLD" default:"0.3"`
	RerankTopN      int     `envconfig:"RERANK_TOP_N" default:"5"`
	MaxToolRounds   int     `envconfig:"MAX_TOOL_ROUNDS" default:"4"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ARBITER", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasLLM() bool {
	return c.LLMAPIKey != "" || c.LLMBaseURL != ""
}

func (c *Config) HasEmbeddings() bool {
	return c.HasLLM() && c.EmbeddingModel != ""
}

// AnalysisModelName falls back to the chat model when no dedicated analysis
// model is configured.
func (c *Config) AnalysisModelName() string {
	if c.AnalysisModel != "" {
		return c.AnalysisModel
	}
	return c.ChatModel
}
