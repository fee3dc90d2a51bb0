package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr                string `yaml:"addr"`
	RequestTimeoutSecs  int    `yaml:"request_timeout_secs"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
	MaxBodyBytes        int64  `yaml:"max_body_bytes"`
	EnableMCP           bool   `yaml:"enable_mcp"`
}

// LLMConfig configures the text-completion provider used by the agent and the retrieval tool.
type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	TimeoutSecs int      `yaml:"timeout_secs"`
	MaxRetries  int      `yaml:"max_retries"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
	WordsPerChunk     int    `yaml:"words_per_chunk"`
	OverlapWords      int    `yaml:"overlap_words"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant gRPC endpoint.
type QdrantConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	APIKey      string `yaml:"api_key"`
	UseTLS      bool   `yaml:"use_tls"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// IndexConfig locates the corpus and the persisted index.
type IndexConfig struct {
	CorpusDir  string   `yaml:"corpus_dir"`
	PersistDir string   `yaml:"persist_dir"`
	Format     string   `yaml:"format"`
	Extensions []string `yaml:"extensions"`
}

// AgentConfig bounds the reasoning loop. MaxTurns is the only turn limit in the system.
type AgentConfig struct {
	MaxTurns        int `yaml:"max_turns"`
	TopK            int `yaml:"top_k"`
	ToolTimeoutSecs int `yaml:"tool_timeout_secs"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig configures OpenTelemetry export. An empty endpoint disables export.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
	Insecure    bool    `yaml:"insecure"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Index       IndexConfig       `yaml:"index"`
	Agent       AgentConfig       `yaml:"agent"`
	Log         LogConfig         `yaml:"log"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault loads the first config found in SearchPaths. With none present
// it returns the built-in defaults and an empty path; nothing is written.
func LoadDefault() (*AppConfig, string, error) {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		return cfg, path, err
	}
	return Default(), "", nil
}

// SearchPaths lists ./config.yaml then ~/.config/patentrag/config.yaml.
func SearchPaths() []string {
	paths := []string{"config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "patentrag", "config.yaml"))
	}
	return paths
}

// LoadEnv loads KEY=VALUE pairs from the given .env files (default ".env").
// Missing files are ignored; variables already set in the environment win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports settings that would make the service misbehave.
func (c *AppConfig) Validate() error {
	var problems []string
	if c.Agent.MaxTurns < 1 {
		problems = append(problems, "agent.max_turns must be >= 1")
	}
	if c.Agent.TopK < 1 {
		problems = append(problems, "agent.top_k must be >= 1")
	}
	if strings.TrimSpace(c.Index.CorpusDir) == "" {
		problems = append(problems, "index.corpus_dir is required")
	}
	if strings.TrimSpace(c.Index.PersistDir) == "" {
		problems = append(problems, "index.persist_dir is required")
	}
	switch c.Index.Format {
	case "jsonl", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("index.format %q is not one of jsonl, sqlite", c.Index.Format))
	}
	switch c.Embedder.Type {
	case "tfidf", "openai":
	default:
		problems = append(problems, fmt.Sprintf("unknown embedder %q", c.Embedder.Type))
	}
	switch c.VectorStore.Type {
	case "memory":
	case "qdrant":
		if c.VectorStore.Qdrant == nil || c.VectorStore.Qdrant.Host == "" {
			problems = append(problems, "vector_store.qdrant.host is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown vector store %q", c.VectorStore.Type))
	}
	switch c.Chunker.Type {
	case "sentence", "word":
	default:
		problems = append(problems, fmt.Sprintf("unknown chunker %q", c.Chunker.Type))
	}
	if c.Server.RequestTimeoutSecs < 0 || c.Agent.ToolTimeoutSecs < 0 {
		problems = append(problems, "timeouts must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// RequestTimeout is the outer deadline of one HTTP request.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c *AppConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSecs) * time.Second
}

// ToolTimeout bounds a single tool invocation.
func (c *AppConfig) ToolTimeout() time.Duration {
	return time.Duration(c.Agent.ToolTimeoutSecs) * time.Second
}

// APIKey resolves the completion API key from the configured environment variable.
func (c *LLMConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// ApplyDefaults fills sections enabled after loading, e.g. by an env override.
func (c *AppConfig) ApplyDefaults() { applyConfigDefaults(c) }

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Server: ServerConfig{
			Addr:                ":5000",
			RequestTimeoutSecs:  300,
			ShutdownTimeoutSecs: 15,
			MaxBodyBytes:        1 << 20,
			EnableMCP:           true,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			TimeoutSecs: 120,
			MaxRetries:  3,
		},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		Chunker:     ChunkerConfig{Type: "sentence", SentencesPerChunk: 5, OverlapSentences: 1, WordsPerChunk: 200, OverlapWords: 40},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 3},
		Index: IndexConfig{
			CorpusDir:  "./internal_docs",
			PersistDir: "./storage/internal_db",
			Format:     "jsonl",
			Extensions: []string{".md", ".markdown", ".txt"},
		},
		Agent:   AgentConfig{MaxTurns: 10, TopK: 3, ToolTimeoutSecs: 60},
		Log:     LogConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{ServiceName: "patentrag", SampleRate: 1},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Chunker.WordsPerChunk == 0 {
		cfg.Chunker.WordsPerChunk = 200
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Embedder.Type == "openai" {
		o := cfg.Embedder.OpenAI
		if o == nil {
			o = &OpenAIEmbedderConfig{}
			cfg.Embedder.OpenAI = o
		}
		o.BaseURL = cmp.Or(o.BaseURL, cfg.LLM.BaseURL, "https://api.openai.com/v1")
		o.APIKeyEnv = cmp.Or(o.APIKeyEnv, cfg.LLM.APIKeyEnv)
		o.Model = cmp.Or(o.Model, "text-embedding-3-small")
		o.TimeoutSecs = cmp.Or(o.TimeoutSecs, 30)
		o.BatchSize = cmp.Or(o.BatchSize, 32)
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.Port == 0 {
			cfg.VectorStore.Qdrant.Port = 6334
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "patentrag"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 10
		}
	}
}
