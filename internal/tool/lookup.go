package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"patentrag/internal/corpus"
)

const (
	LookupName           = "search_by_number"
	LookupDescription    = "Returns the full internal document for one patent or publication number. Input is the number only, e.g. US1000001."
	InvalidNumberMessage = "ERROR: patent or publication number invalid."
)

// PatentLookup reads one corpus document by its patent number.
type PatentLookup struct {
	dir string
}

var _ Tool = (*PatentLookup)(nil)

func NewPatentLookup(corpusDir string) *PatentLookup {
	return &PatentLookup{dir: corpusDir}
}

func (p *PatentLookup) Descriptor() Descriptor {
	return Descriptor{Name: LookupName, Description: LookupDescription}
}

func (p *PatentLookup) Invoke(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	number := strings.TrimSpace(input)
	content, err := corpus.Lookup(p.dir, number)
	switch {
	case errors.Is(err, corpus.ErrInvalidNumber):
		return InvalidNumberMessage, nil
	case errors.Is(err, corpus.ErrNotFound):
		return fmt.Sprintf("No internal document found for %s.", number), nil
	case err != nil:
		return "", fmt.Errorf("%s: %w", LookupName, err)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Sprintf("The internal document for %s is empty.", number), nil
	}
	return content, nil
}
