// Package index builds, persists, loads, and queries the vector index over the corpus.
package index

import (
	"context"
	"fmt"
	"time"

	"patentrag/internal/domain"
	"patentrag/internal/vectorstore"
	"patentrag/internal/vectorstore/memory"
)

// Components are the collaborators a Store is built from.
type Components struct {
	Chunker  domain.Chunker
	Embedder domain.Embedder
	// Backend serves similarity search; an in-memory store when nil.
	Backend vectorstore.Storage
}

// Store is an immutable set of embedded chunks. After Build or Load it is
// read-only and safe for concurrent Query calls.
type Store struct {
	embedder  domain.Embedder
	backend   vectorstore.Storage
	entries   []domain.IndexEntry
	dimension int
	createdAt time.Time
}

// Build chunks and embeds every document.
func Build(ctx context.Context, docs []domain.Document, c Components) (*Store, error) {
	if len(docs) == 0 {
		return nil, invalidArgument("no documents to index")
	}
	if c.Chunker == nil || c.Embedder == nil {
		return nil, invalidArgument("chunker and embedder are required")
	}

	var chunks []domain.Chunk
	var owners []domain.Document
	for _, d := range docs {
		cs, err := c.Chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.ID, err)
		}
		for _, ch := range cs {
			chunks = append(chunks, ch)
			owners = append(owners, d)
		}
	}
	if len(chunks) == 0 {
		return nil, invalidArgument("documents contain no indexable text")
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	if err := c.Embedder.Prepare(ctx, texts); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	vectors, err := c.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, ch := range chunks {
		entries[i] = domain.IndexEntry{
			Chunk:   ch,
			Vector:  vectors[i],
			Source:  owners[i].Path,
			Title:   owners[i].Title,
			Patent:  owners[i].PatentNumber(),
			Ordinal: i,
		}
	}
	return newStore(ctx, c, entries, len(vectors[0]), time.Now().UTC())
}

func newStore(ctx context.Context, c Components, entries []domain.IndexEntry, dimension int, createdAt time.Time) (*Store, error) {
	backend := c.Backend
	if backend == nil {
		backend = memory.NewStorage()
	}
	if err := backend.Init(ctx, dimension); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	if err := backend.Upsert(ctx, entries); err != nil {
		return nil, fmt.Errorf("seed vector store: %w", err)
	}
	return &Store{
		embedder:  c.Embedder,
		backend:   backend,
		entries:   entries,
		dimension: dimension,
		createdAt: createdAt,
	}, nil
}

// Query returns at most topK entries ranked by descending similarity to text,
// ties broken by insertion order. Entries with no similarity are never
// returned. A query sharing no vocabulary with the corpus embeds to the zero
// vector and is ranked lexically instead.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, invalidArgument("top_k must be positive, got %d", topK)
	}
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vecs))
	}
	if isZero(vecs[0]) {
		return s.lexicalSearch(text, topK), nil
	}
	res, err := s.backend.Search(ctx, vecs[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	hits := res[:0]
	for _, r := range res {
		if r.Score > 1e-9 {
			hits = append(hits, r)
		}
	}
	if len(hits) == 0 {
		return s.lexicalSearch(text, topK), nil
	}
	return hits, nil
}

// Len returns the number of indexed chunks.
func (s *Store) Len() int { return len(s.entries) }

// Dimension returns the vector dimensionality.
func (s *Store) Dimension() int { return s.dimension }

// EmbedderName names the embedder the vectors were produced with.
func (s *Store) EmbedderName() string { return s.embedder.Name() }

// Entries returns a copy of the indexed entries in insertion order.
func (s *Store) Entries() []domain.IndexEntry {
	out := make([]domain.IndexEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Close releases the vector backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
