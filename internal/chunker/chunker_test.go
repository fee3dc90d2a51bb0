package chunker

import (
	"strings"
	"testing"

	"patentrag/internal/domain"
)

func TestSentenceChunkerOverlap(t *testing.T) {
	doc := domain.Document{ID: "US1.md", Content: "One. Two. Three. Four. Five."}
	chunks, err := NewSentenceChunker(2, 1).Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	want := []string{"One. Two.", "Two. Three.", "Three. Four.", "Four. Five."}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %+v", len(want), len(chunks), chunks)
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i].Text, w)
		}
		if chunks[i].DocumentID != "US1.md" || chunks[i].Index != i {
			t.Fatalf("chunk %d provenance: %+v", i, chunks[i])
		}
	}
	if chunks[1].ChunkID != "US1.md:1" {
		t.Fatalf("chunk id = %q", chunks[1].ChunkID)
	}
}

func TestSentenceChunkerKeepsHeadings(t *testing.T) {
	doc := domain.Document{ID: "d", Content: "# Gear Assembly\nA planetary gear set. Used in hubs"}
	chunks, err := NewSentenceChunker(5, 0).Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	for _, part := range []string{"# Gear Assembly", "planetary gear set.", "Used in hubs"} {
		if !strings.Contains(chunks[0].Text, part) {
			t.Fatalf("chunk %q missing %q", chunks[0].Text, part)
		}
	}
}

func TestChunkersSkipEmptyDocuments(t *testing.T) {
	doc := domain.Document{ID: "empty", Content: "   \n  "}
	for name, c := range map[string]domain.Chunker{
		"sentence": NewSentenceChunker(3, 1),
		"word":     NewWordChunker(10, 2),
	} {
		chunks, err := c.Chunk(doc)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(chunks) != 0 {
			t.Fatalf("%s: expected no chunks, got %d", name, len(chunks))
		}
	}
}

func TestWordChunkerWindows(t *testing.T) {
	doc := domain.Document{ID: "w", Content: "a b c d e f g"}
	chunks, err := NewWordChunker(3, 1).Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	want := []string{"a b c", "c d e", "e f g"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %+v", len(want), chunks)
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i].Text, w)
		}
	}
}
