package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"patentrag/internal/corpus"
	"patentrag/internal/embedding/tfidf"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, d := range testDocs() {
		if err := os.WriteFile(filepath.Join(dir, d.ID), []byte(d.Content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func bootstrapOpts(corpusDir, persistDir string) BootstrapOptions {
	return BootstrapOptions{
		CorpusDir:  corpusDir,
		PersistDir: persistDir,
		Format:     FormatJSONL,
		Components: testComponents(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestBootstrapBuildsThenLoads(t *testing.T) {
	ctx := context.Background()
	corpusDir := writeCorpus(t)
	persistDir := filepath.Join(t.TempDir(), "storage", "internal_db")

	built, err := Bootstrap(ctx, bootstrapOpts(corpusDir, persistDir))
	if err != nil {
		t.Fatalf("first Bootstrap: %v", err)
	}
	if _, err := os.Stat(FormatJSONL.Path(persistDir)); err != nil {
		t.Fatalf("index not persisted: %v", err)
	}

	// The corpus is no longer needed once an index exists.
	if err := os.RemoveAll(corpusDir); err != nil {
		t.Fatal(err)
	}
	opts := bootstrapOpts(corpusDir, persistDir)
	opts.Components.Embedder = tfidf.NewEmbedder()
	loaded, err := Bootstrap(ctx, opts)
	if err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	if loaded.Len() != built.Len() {
		t.Fatalf("loaded %d entries, built %d", loaded.Len(), built.Len())
	}
}

func TestBootstrapCorpusErrorIsFatal(t *testing.T) {
	opts := bootstrapOpts(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	_, err := Bootstrap(context.Background(), opts)
	if !errors.Is(err, corpus.ErrCorpusRead) {
		t.Fatalf("expected ErrCorpusRead, got %v", err)
	}
}

func TestBootstrapRebuildIgnoresPersisted(t *testing.T) {
	ctx := context.Background()
	corpusDir := writeCorpus(t)
	persistDir := t.TempDir()
	if _, err := Bootstrap(ctx, bootstrapOpts(corpusDir, persistDir)); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(corpusDir, "US1000003.md")); err != nil {
		t.Fatal(err)
	}
	opts := bootstrapOpts(corpusDir, persistDir)
	opts.Rebuild = true
	opts.Components.Embedder = tfidf.NewEmbedder()
	store, err := Bootstrap(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range store.Entries() {
		if e.Patent == "US1000003" {
			t.Fatal("rebuild should reflect the current corpus")
		}
	}
}
