package memory

import (
	"context"
	"errors"
	"math"
	"sync"

	"patentrag/internal/domain"
	"patentrag/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	entries   []domain.IndexEntry
}

var _ vectorstore.Storage = (*Storage)(nil)

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.entries = nil
	return nil
}

func (s *Storage) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, errors.New("topK must be positive")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	qnorm := norm(vector)
	results := make([]domain.SearchResult, 0, len(s.entries))
	for i, e := range s.entries {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		results = append(results, domain.SearchResult{Entry: e, Score: cosine(e.Vector, vector, qnorm)})
	}
	vectorstore.SortResults(results)
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (s *Storage) Close() error { return nil }

func cosine(a, b []float64, bnorm float64) float64 {
	n := min(len(a), len(b))
	dot := 0.0
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	denom := norm(a) * bnorm
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
