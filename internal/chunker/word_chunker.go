package chunker

import (
	"strings"

	"patentrag/internal/domain"
)

// WordChunker splits text into overlapping windows of whitespace-separated words.
type WordChunker struct {
	size    int
	overlap int
}

func NewWordChunker(size, overlap int) *WordChunker {
	if size <= 0 {
		size = 200
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &WordChunker{size: size, overlap: overlap}
}

func (c *WordChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	return windows(document, strings.Fields(document.Content), c.size, c.overlap), nil
}
