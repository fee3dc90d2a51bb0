// Package summarizer condenses retrieved patent text without calling a model.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"patentrag/internal/domain"
)

// FrequencySummarizer is an extractive summarizer: sentences are ranked by
// the normalized frequency of their non-stopword tokens and the best ones are
// returned in their original order. Patent numbers weigh twice the most
// frequent term and repeated sentences are kept once.
type FrequencySummarizer struct {
	tokenPattern  *regexp.Regexp
	patentPattern *regexp.Regexp
	splitter      *regexp.Regexp
	stopwords     map[string]struct{}
}

var _ domain.Summarizer = (*FrequencySummarizer)(nil)

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern:  regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		patentPattern: regexp.MustCompile(`^[a-z]{2}\d{5,}[a-z0-9]*$`),
		splitter:      regexp.MustCompile(`(?m)(?U)([^.!?\n]+(?:[.!?]|$))`),
		stopwords:     defaultStopwords(),
	}
}

const patentWeight = 2.0

type rankedSentence struct {
	index  int
	text   string
	tokens []string
	score  float64
}

// Summarize returns at most maxSentences sentences of text (5 when maxSentences <= 0).
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := s.split(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	weights := s.weights(sentences)
	for i := range sentences {
		sentences[i].score = score(sentences[i].tokens, weights)
	}
	ranked := append([]rankedSentence(nil), sentences...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	ranked = ranked[:min(maxSentences, len(ranked))]
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].index < ranked[j].index })
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.text
	}
	return strings.Join(out, " "), nil
}

// split yields unique sentences with markdown line prefixes removed.
func (s *FrequencySummarizer) split(text string) []rankedSentence {
	var out []rankedSentence
	seen := make(map[string]struct{})
	for _, raw := range s.splitter.FindAllString(text, -1) {
		sent := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "#>*- "))
		if sent == "" {
			continue
		}
		tokens := s.tokenPattern.FindAllString(strings.ToLower(sent), -1)
		key := strings.Join(tokens, " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rankedSentence{index: len(out), text: sent, tokens: tokens})
	}
	return out
}

// weights maps each content token to its frequency scaled into (0, 1].
// Patent numbers get patentWeight.
func (s *FrequencySummarizer) weights(sentences []rankedSentence) map[string]float64 {
	freq := make(map[string]float64)
	for _, sent := range sentences {
		for _, tok := range sent.tokens {
			if _, stop := s.stopwords[tok]; !stop {
				freq[tok]++
			}
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	for tok, v := range freq {
		if s.patentPattern.MatchString(tok) {
			freq[tok] = patentWeight
			continue
		}
		freq[tok] = v / maxF
	}
	return freq
}

// score divides by the square root of the length so long sentences do not win by size alone.
func score(tokens []string, weights map[string]float64) float64 {
	if len(tokens) == 0 {
		return 0
	}
	total := 0.0
	for _, tok := range tokens {
		total += weights[tok]
	}
	return total / math.Sqrt(float64(len(tokens)))
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"wherein", "said", "claim", "claims", "comprising", "thereof",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
