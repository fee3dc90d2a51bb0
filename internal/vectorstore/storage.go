// Package vectorstore holds the similarity-search backends behind the index store.
package vectorstore

import (
	"context"
	"sort"

	"patentrag/internal/domain"
)

// Storage holds embedded entries and supports similarity search. Init
// (re)creates an empty store of the given dimension.
// Search results are ordered by descending score, ties by ascending Ordinal.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, entries []domain.IndexEntry) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Close() error
}

// SortResults orders results by score, breaking ties by insertion order.
func SortResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.Ordinal < results[j].Entry.Ordinal
	})
}
