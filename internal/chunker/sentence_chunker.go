package chunker

import (
	"regexp"
	"strings"

	"patentrag/internal/domain"
)

// Line-aware: markdown headings and list items end a sentence even without punctuation.
var sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?\n]+(?:[.!?]|$))`)

// SentenceChunker groups consecutive sentences, repeating the last
// overlapSentences of each chunk at the start of the next.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	overlapSentences = max(0, min(overlapSentences, sentencesPerChunk-1))
	return &SentenceChunker{sentencesPerChunk: sentencesPerChunk, overlapSentences: overlapSentences}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	return windows(document, splitSentences(document.Content), c.sentencesPerChunk, c.overlapSentences), nil
}

func splitSentences(content string) []string {
	var out []string
	for _, s := range sentenceRe.FindAllString(content, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
