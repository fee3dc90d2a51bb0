package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"

	"patentrag/internal/corpus"
)

// BootstrapOptions configures the load-or-build policy run at startup.
type BootstrapOptions struct {
	CorpusDir  string
	Extensions []string
	PersistDir string
	Format     Format
	// Rebuild skips loading and always builds from the corpus.
	Rebuild    bool
	Components Components
	Logger     *slog.Logger
}

// Bootstrap loads the persisted index, or builds it from the corpus and
// persists it when no usable index exists. Corpus and build failures are
// returned; a missing or incompatible persisted index is not an error.
func Bootstrap(ctx context.Context, opts BootstrapOptions) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "index")

	if !opts.Rebuild {
		start := time.Now()
		store, err := Load(ctx, opts.PersistDir, opts.Format, opts.Components)
		if err == nil {
			logger.Info("index loaded",
				"location", opts.Format.Path(opts.PersistDir),
				"entries", store.Len(),
				"embedder", store.EmbedderName(),
				"elapsed", time.Since(start).Truncate(time.Millisecond))
			return store, nil
		}
		if !errors.Is(err, ErrIndexLoad) {
			return nil, err
		}
		logger.Warn("persisted index unusable, rebuilding", tint.Err(err))
	}

	start := time.Now()
	docs, err := corpus.NewLoader(opts.Extensions).WithLogger(logger).Load(opts.CorpusDir)
	if err != nil {
		return nil, err
	}
	logger.Info("corpus loaded", "dir", opts.CorpusDir, "documents", len(docs))

	store, err := Build(ctx, docs, opts.Components)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if err := store.Persist(opts.PersistDir, opts.Format); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("persist index: %w", err)
	}
	logger.Info("index built",
		"location", opts.Format.Path(opts.PersistDir),
		"documents", len(docs),
		"entries", store.Len(),
		"dimension", store.Dimension(),
		"elapsed", time.Since(start).Truncate(time.Millisecond))
	return store, nil
}
