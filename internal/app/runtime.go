package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"patentrag/internal/agent"
	"patentrag/internal/chunker"
	"patentrag/internal/config"
	"patentrag/internal/domain"
	"patentrag/internal/embedding"
	"patentrag/internal/index"
	"patentrag/internal/llm"
	"patentrag/internal/llm/openai"
	"patentrag/internal/summarizer"
	"patentrag/internal/tool"
	"patentrag/internal/vectorstore"
	"patentrag/internal/vectorstore/memory"
	"patentrag/internal/vectorstore/qdrant"
)

// Runtime holds the wired index, tools and agent shared by every entry point.
type Runtime struct {
	Store *index.Store
	Tools *tool.Registry
	Agent *agent.Agent
}

type RuntimeOptions struct {
	// Rebuild ignores any persisted index.
	Rebuild bool
	// Provider replaces the configured completion provider for both the
	// agent and the retrieval tool.
	Provider llm.Provider
	// Observers receive every agent turn.
	Observers []agent.Observer
	// AgentLogger receives turn logs instead of the runtime logger.
	AgentLogger *slog.Logger
}

// NewRuntime opens the index and wires the agent over it.
func NewRuntime(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	store, err := OpenIndex(ctx, cfg, logger, opts.Rebuild)
	if err != nil {
		return nil, err
	}
	reasoner, synth := opts.Provider, opts.Provider
	if reasoner == nil {
		reasoner, synth, err = NewProviders(cfg)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	registry, err := tool.NewRegistry(
		tool.NewRetrieval(store, synth, cfg.Agent.TopK),
		tool.NewPatentLookup(cfg.Index.CorpusDir),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}
	sum, err := NewSummarizer(cfg.Summarizer)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	agentLogger := opts.AgentLogger
	if agentLogger == nil {
		agentLogger = logger.With("component", "agent")
	}
	observers := append([]agent.Observer{agent.LogObserver(agentLogger)}, opts.Observers...)
	a, err := agent.New(reasoner, registry, agent.Config{
		MaxTurns:         cfg.Agent.MaxTurns,
		ToolTimeout:      cfg.ToolTimeout(),
		Summarizer:       sum,
		SummarySentences: cfg.Summarizer.MaxSentences,
		Observers:        observers,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("new agent: %w", err)
	}
	return &Runtime{Store: store, Tools: registry, Agent: a}, nil
}

func (r *Runtime) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

// OpenIndex loads the persisted index or builds it from the corpus.
func OpenIndex(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, rebuild bool) (*index.Store, error) {
	components, err := NewComponents(cfg)
	if err != nil {
		return nil, err
	}
	format, err := index.ParseFormat(cfg.Index.Format)
	if err != nil {
		return nil, err
	}
	return index.Bootstrap(ctx, index.BootstrapOptions{
		CorpusDir:  cfg.Index.CorpusDir,
		Extensions: cfg.Index.Extensions,
		PersistDir: cfg.Index.PersistDir,
		Format:     format,
		Rebuild:    rebuild,
		Components: components,
		Logger:     logger,
	})
}

// NewComponents builds the chunker, embedder and vector backend named in cfg.
func NewComponents(cfg *config.AppConfig) (index.Components, error) {
	var c index.Components
	switch cfg.Chunker.Type {
	case "sentence", "":
		c.Chunker = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	case "word":
		c.Chunker = chunker.NewWordChunker(cfg.Chunker.WordsPerChunk, cfg.Chunker.OverlapWords)
	default:
		return c, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return c, err
	}
	c.Embedder = emb
	c.Backend, err = newBackend(cfg.VectorStore)
	if err != nil {
		return c, err
	}
	return c, nil
}

func newBackend(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant vector store config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// NewProviders returns the agent's provider, which retries, and the retrieval
// tool's provider, which does not. Retrieval runs inside a tool call whose
// failures the agent already absorbs.
func NewProviders(cfg *config.AppConfig) (reasoner, synth llm.Provider, err error) {
	if cfg.LLM.Provider != "openai" && cfg.LLM.Provider != "" {
		return nil, nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
	client, err := openai.New(openai.Config{
		APIKey:      cfg.LLM.APIKey(),
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("llm provider: %w", err)
	}
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second
	reasoner = llm.NewRetryProvider(client, &llm.RetryConfig{
		MaxRetries: cfg.LLM.MaxRetries,
		RetryDelay: time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    timeout,
	})
	synth = llm.NewRetryProvider(client, &llm.RetryConfig{Timeout: timeout})
	return reasoner, synth, nil
}

func NewSummarizer(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "frequency", "":
		return summarizer.NewFrequencySummarizer(), nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Type)
	}
}
