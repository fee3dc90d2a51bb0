// Package tfidf is the offline embedder: a TF-IDF vectorizer whose vocabulary
// is fitted on the chunk corpus and persisted alongside the index.
package tfidf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
)

var errNotPrepared = errors.New("tfidf embedder not prepared")

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Embedder maps text onto a fixed, sorted vocabulary weighted by smoothed IDF.
// Vectors are L2-normalized, so cosine similarity is a dot product.
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
}

// state is the persisted form of a prepared embedder.
type state struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

func NewEmbedder() *Embedder {
	return &Embedder{}
}

func (e *Embedder) Name() string { return "tfidf" }

// Prepare fits the vocabulary to corpus, replacing any previous fit.
func (e *Embedder) Prepare(_ context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := documentFrequencies(corpus)
	if len(df) == 0 {
		return errors.New("no tokens found in corpus")
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	slices.Sort(terms)

	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = smoothedIDF(len(corpus), df[term])
	}
	e.load(terms, idf)
	return nil
}

func (e *Embedder) Dimension() int { return len(e.idf) }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if e.vocabulary == nil {
		return nil, errNotPrepared
	}
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e.vector(text))
	}
	return out, nil
}

// State serializes the vocabulary and IDF weights.
func (e *Embedder) State() ([]byte, error) {
	if e.vocabulary == nil {
		return nil, errNotPrepared
	}
	terms := make([]string, len(e.vocabulary))
	for term, idx := range e.vocabulary {
		terms[idx] = term
	}
	return json.Marshal(state{Terms: terms, IDF: e.idf})
}

// Restore loads a vocabulary previously produced by State.
func (e *Embedder) Restore(data []byte) error {
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode tfidf state: %w", err)
	}
	if len(s.Terms) == 0 || len(s.Terms) != len(s.IDF) {
		return fmt.Errorf("tfidf state: %d terms, %d idf values", len(s.Terms), len(s.IDF))
	}
	e.load(s.Terms, s.IDF)
	return nil
}

func (e *Embedder) load(terms []string, idf []float64) {
	vocab := make(map[string]int, len(terms))
	for i, term := range terms {
		vocab[term] = i
	}
	e.vocabulary, e.idf = vocab, idf
}

func (e *Embedder) vector(text string) []float64 {
	vec := make([]float64, len(e.idf))
	counts, total := make(map[int]int), 0
	for _, tok := range tokens(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			counts[idx]++
			total++
		}
	}
	for idx, n := range counts {
		vec[idx] = float64(n) / float64(total) * e.idf[idx]
	}
	normalize(vec)
	return vec
}

func documentFrequencies(corpus []string) map[string]int {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]bool)
		for _, tok := range tokens(text) {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}
	return df
}

func smoothedIDF(docs, df int) float64 {
	return math.Log(float64(1+docs)/float64(1+df)) + 1
}

func normalize(vec []float64) {
	sum := 0.0
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

func tokens(text string) []string {
	raw := wordRe.FindAllString(strings.ToLower(text), -1)
	return slices.DeleteFunc(raw, func(t string) bool {
		_, stop := stopwords[t]
		return stop
	})
}

var stopwords = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, w := range strings.Fields(`a an the and or but if then else for to of in on at by with as
		is are was were be been being it this that these those from up down over under again further
		than so such into about between through during before after above below out off own same too
		very can will just don should now`) {
		m[w] = struct{}{}
	}
	return m
}()
