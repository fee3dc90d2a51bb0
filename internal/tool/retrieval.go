package tool

import (
	"context"
	"fmt"
	"strings"

	"patentrag/internal/domain"
	"patentrag/internal/llm"
)

const (
	RetrievalName        = "internal_db"
	RetrievalDescription = "Provides internal documents on various patents. Use a detailed plain text question as input to the tool."

	// NoResultsMessage is returned when the index holds nothing relevant.
	NoResultsMessage  = "No relevant material was found in the internal patent documents for this question."
	emptyInputMessage = "No question was provided. Call internal_db with a detailed plain text question."

	synthesisSystemPrompt = "You answer questions about patents using only the provided excerpts from internal patent documents. " +
		"Cite patent numbers exactly as they appear. If the excerpts do not answer the question, say so."

	snippetRunes = 600
)

// Searcher is the read side of the index store.
type Searcher interface {
	Query(ctx context.Context, text string, topK int) ([]domain.SearchResult, error)
}

// Retrieval answers a question from the top-k index entries, synthesized by the completion provider.
type Retrieval struct {
	index    Searcher
	provider llm.Provider
	topK     int
}

var _ Tool = (*Retrieval)(nil)

func NewRetrieval(index Searcher, provider llm.Provider, topK int) *Retrieval {
	if topK <= 0 {
		topK = 3
	}
	return &Retrieval{index: index, provider: provider, topK: topK}
}

func (r *Retrieval) Descriptor() Descriptor {
	return Descriptor{Name: RetrievalName, Description: RetrievalDescription}
}

// Invoke never returns an empty string without an error.
func (r *Retrieval) Invoke(ctx context.Context, input string) (string, error) {
	question := strings.TrimSpace(input)
	if question == "" {
		return emptyInputMessage, nil
	}
	results, err := r.index.Query(ctx, question, r.topK)
	if err != nil {
		return "", fmt.Errorf("%s: query index: %w", RetrievalName, err)
	}
	if len(results) == 0 {
		return NoResultsMessage, nil
	}

	resp, err := r.provider.Complete(ctx, llm.UserPrompt(synthesisSystemPrompt, synthesisPrompt(question, results)), nil)
	if err != nil {
		return "", fmt.Errorf("%s: synthesize: %w", RetrievalName, err)
	}
	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		answer = "The retrieved excerpts are listed below."
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\nSources:\n")
	b.WriteString(FormatSnippets(results))
	return b.String(), nil
}

func synthesisPrompt(question string, results []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nExcerpts:\n")
	b.WriteString(FormatSnippets(results))
	b.WriteString("\nSummarize these excerpts in light of the question.")
	return b.String()
}

// FormatSnippets renders results one per line with their provenance.
func FormatSnippets(results []domain.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		label := r.Entry.Patent
		if label == "" {
			label = r.Entry.Chunk.DocumentID
		}
		if r.Entry.Title != "" {
			label += " - " + r.Entry.Title
		}
		fmt.Fprintf(&b, "[%d] %s (source: %s, score: %.3f)\n%s\n", i+1, label, r.Entry.Source, r.Score, truncate(r.Entry.Chunk.Text, snippetRunes))
	}
	return b.String()
}

func truncate(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
