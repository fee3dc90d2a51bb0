package index

import (
	"math"
	"regexp"
	"strings"

	"patentrag/internal/domain"
	"patentrag/internal/vectorstore"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// lexicalSearch ranks entries by the Ochiai coefficient of their distinct
// lowercase words against the query's. Entries sharing no word are not hits.
func (s *Store) lexicalSearch(query string, topK int) []domain.SearchResult {
	q := wordSet(query)
	if len(q) == 0 {
		return nil
	}
	var out []domain.SearchResult
	for _, e := range s.entries {
		if score := ochiai(q, wordSet(e.Chunk.Text)); score > 0 {
			out = append(out, domain.SearchResult{Entry: e, Score: score})
		}
	}
	vectorstore.SortResults(out)
	return out[:min(topK, len(out))]
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		set[w] = true
	}
	return set
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if b[w] {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(a)*len(b)))
}
