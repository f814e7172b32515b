package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	EmbedLLM  EmbedLLMConfig  `yaml:"embed_llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Session   SessionConfig   `yaml:"session"`
}

type AnthropicConfig struct {
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// EmbedLLMConfig selects the embedding backend. Provider is either an
// openai-compatible endpoint or a local ollama instance.
type EmbedLLMConfig struct {
	Provider string `yaml:"provider" validate:"oneof=openai ollama"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	DocsPath     string `yaml:"docs_path" validate:"required"`
	DBPath       string `yaml:"db_path"`
	ChunkSize    int    `yaml:"chunk_size" validate:"min=1"`
	ChunkOverlap int    `yaml:"chunk_overlap" validate:"min=0"`
	MaxResults   int    `yaml:"max_results" validate:"min=1"`
}

type SessionConfig struct {
	Store      string         `yaml:"store" validate:"oneof=memory postgres"`
	MaxHistory int            `yaml:"max_history" validate:"min=0"`
	Database   DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Addr     string `yaml:"addr"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Insecure bool   `yaml:"insecure"`
	Debug    bool   `yaml:"debug"`
}

const (
	DefaultChunkSize      = 800
	DefaultChunkOverlap   = 100
	DefaultMaxResults     = 5
	DefaultMaxHistory     = 2
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultEmbedProvider  = "ollama"
	defaultEmbedModel     = "nomic-embed-text"
	defaultOllamaURL      = "http://localhost:11434"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills unset fields. Secrets fall back to the environment,
// which the caller is expected to have primed via godotenv.
func (c *Config) applyDefaults() {
	if c.Anthropic.Key == "" {
		c.Anthropic.Key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = defaultAnthropicModel
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = defaultEmbedProvider
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = defaultEmbedModel
	}
	if c.EmbedLLM.BaseURL == "" && c.EmbedLLM.Provider == "ollama" {
		c.EmbedLLM.BaseURL = defaultOllamaURL
	}
	if c.EmbedLLM.Key == "" {
		c.EmbedLLM.Key = os.Getenv("OPENAI_API_KEY")
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = DefaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = DefaultChunkOverlap
	}
	if c.RAG.MaxResults == 0 {
		c.RAG.MaxResults = DefaultMaxResults
	}
	if c.Session.Store == "" {
		c.Session.Store = "memory"
	}
	if c.Session.MaxHistory == 0 {
		c.Session.MaxHistory = DefaultMaxHistory
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.Session.Store == "postgres" && c.Session.Database.Addr == "" {
		return fmt.Errorf("session store %q requires database.addr", c.Session.Store)
	}
	return nil
}
