package llmservice

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"course-rag/internal/config"
)

// New builds the chat model client. anthropic.New rejects an empty token,
// so a missing API key surfaces here instead of on the first query.
func New(cfg *config.AnthropicConfig) (llms.Model, error) {
	log.Debug().Str("model", cfg.Model).Msg("Creating anthropic client")

	opts := []anthropic.Option{
		anthropic.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		anthropic.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	return anthropic.New(opts...)
}
