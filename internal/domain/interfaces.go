package domain

import "context"

// Document represents a single corpus file loaded into the system.
type Document struct {
	ID       string
	Path     string
	Title    string
	Content  string
	Metadata map[string]string
}

// PatentNumber returns the patent or publication number derived from the file name.
func (d Document) PatentNumber() string {
	return d.Metadata[MetaPatentNumber]
}

// Metadata keys set by the corpus loader.
const (
	MetaPatentNumber = "patent_number"
	MetaExtension    = "ext"
)

// Chunk is a semantically meaningful part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
}

// IndexEntry is an embedded chunk together with a back-reference to its document.
type IndexEntry struct {
	Chunk   Chunk
	Vector  []float64
	Source  string
	Title   string
	Patent  string
	Ordinal int
}

// SearchResult represents a matching entry with a relevance score.
type SearchResult struct {
	Entry IndexEntry
	Score float64
}

// Embedder converts free text into numeric vector representations.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// StatefulEmbedder is an Embedder whose learned state must travel with a
// persisted index (e.g. a TF-IDF vocabulary).
type StatefulEmbedder interface {
	Embedder
	State() ([]byte, error)
	Restore(state []byte) error
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief extractive summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
