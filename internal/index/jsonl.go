package index

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"patentrag/internal/domain"
)

// writeJSONL writes the manifest as the first line followed by one entry per line.
func writeJSONL(path string, m manifest, entries []domain.IndexEntry) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer out.Close()

	writer := bufio.NewWriter(out)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	for _, e := range entries {
		if err := encoder.Encode(toRecord(e)); err != nil {
			return fmt.Errorf("write index entry: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	return out.Close()
}

func readJSONL(path string) (manifest, []domain.IndexEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return manifest{}, nil, fmt.Errorf("open index: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	var (
		m       manifest
		entries []domain.IndexEntry
		lineNo  int
		haveHdr bool
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !haveHdr {
			if err := json.Unmarshal([]byte(line), &m); err != nil {
				return manifest{}, nil, fmt.Errorf("parse manifest: %w", err)
			}
			haveHdr = true
			continue
		}
		var r record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return manifest{}, nil, fmt.Errorf("parse index line %d: %w", lineNo, err)
		}
		entries = append(entries, r.entry())
	}
	if err := scanner.Err(); err != nil {
		return manifest{}, nil, fmt.Errorf("read index: %w", err)
	}
	if !haveHdr {
		return manifest{}, nil, errors.New("empty index file")
	}
	return m, entries, nil
}
