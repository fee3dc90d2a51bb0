package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode"
)

var (
	// ErrInvalidNumber is returned for patent numbers that are not purely alphanumeric.
	ErrInvalidNumber = errors.New("patent or publication number invalid")
	// ErrNotFound is returned when no document exists for a patent number.
	ErrNotFound = errors.New("patent not found")
)

// Lookup reads the markdown document stored as <dir>/<number>.md.
func Lookup(dir, number string) (string, error) {
	if !isAlnum(number) {
		return "", ErrInvalidNumber
	}
	data, err := os.ReadFile(filepath.Join(dir, number+".md"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, number)
		}
		return "", err
	}
	return string(data), nil
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
