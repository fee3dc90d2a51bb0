package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"patentrag/internal/domain"
)

// SchemaVersion is bumped whenever the persisted layout changes.
const SchemaVersion = 1

// Format selects the on-disk representation of a persisted index.
type Format string

const (
	FormatJSONL  Format = "jsonl"
	FormatSQLite Format = "sqlite"
)

// ParseFormat maps a config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSONL, "":
		return FormatJSONL, nil
	case FormatSQLite:
		return FormatSQLite, nil
	default:
		return "", invalidArgument("unknown index format %q", s)
	}
}

// fileName is the single file holding the index inside the persist directory.
func (f Format) fileName() string {
	if f == FormatSQLite {
		return "index.db"
	}
	return "index.jsonl"
}

// Path returns the index file for this format under dir.
func (f Format) Path(dir string) string {
	return filepath.Join(dir, f.fileName())
}

// manifest describes a persisted index.
type manifest struct {
	SchemaVersion int       `json:"schema_version"`
	Embedder      string    `json:"embedder"`
	Dimension     int       `json:"dimension"`
	Count         int       `json:"count"`
	CreatedAt     time.Time `json:"created_at"`
	EmbedderState []byte    `json:"embedder_state,omitempty"`
}

// record is the serialized form of one IndexEntry.
type record struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	Title      string    `json:"title,omitempty"`
	Patent     string    `json:"patent,omitempty"`
	Ordinal    int       `json:"ordinal"`
	Vector     []float64 `json:"vector"`
}

func toRecord(e domain.IndexEntry) record {
	return record{
		ChunkID:    e.Chunk.ChunkID,
		DocumentID: e.Chunk.DocumentID,
		Index:      e.Chunk.Index,
		Text:       e.Chunk.Text,
		Source:     e.Source,
		Title:      e.Title,
		Patent:     e.Patent,
		Ordinal:    e.Ordinal,
		Vector:     e.Vector,
	}
}

func (r record) entry() domain.IndexEntry {
	return domain.IndexEntry{
		Chunk:   domain.Chunk{DocumentID: r.DocumentID, ChunkID: r.ChunkID, Text: r.Text, Index: r.Index},
		Vector:  r.Vector,
		Source:  r.Source,
		Title:   r.Title,
		Patent:  r.Patent,
		Ordinal: r.Ordinal,
	}
}

func (s *Store) manifest() (manifest, error) {
	m := manifest{
		SchemaVersion: SchemaVersion,
		Embedder:      s.embedder.Name(),
		Dimension:     s.dimension,
		Count:         len(s.entries),
		CreatedAt:     s.createdAt,
	}
	if se, ok := s.embedder.(domain.StatefulEmbedder); ok {
		state, err := se.State()
		if err != nil {
			return manifest{}, fmt.Errorf("export embedder state: %w", err)
		}
		m.EmbedderState = state
	}
	return m, nil
}

// Persist writes the index under dir. The previous index, if any, is replaced
// only after the new one is fully written; on failure it is left untouched.
func (s *Store) Persist(dir string, format Format) error {
	m, err := s.manifest()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create persist dir: %w", err)
	}
	switch format {
	case FormatJSONL, "":
		return writeAtomic(FormatJSONL.Path(dir), func(path string) error {
			return writeJSONL(path, m, s.entries)
		})
	case FormatSQLite:
		return writeAtomic(FormatSQLite.Path(dir), func(path string) error {
			return writeSQLite(path, m, s.entries)
		})
	default:
		return invalidArgument("unknown index format %q", format)
	}
}

// Load reads an index previously written by Persist and seeds the backend.
// Every failure is a *LoadError.
func Load(ctx context.Context, dir string, format Format, c Components) (*Store, error) {
	if c.Embedder == nil {
		return nil, invalidArgument("embedder is required")
	}
	path := format.Path(dir)
	if _, err := os.Stat(path); err != nil {
		reason := "unreadable"
		if errors.Is(err, os.ErrNotExist) {
			reason = "not found"
		}
		return nil, &LoadError{Location: path, Reason: reason, Err: err}
	}

	var (
		m       manifest
		entries []domain.IndexEntry
		err     error
	)
	switch format {
	case FormatJSONL, "":
		m, entries, err = readJSONL(path)
	case FormatSQLite:
		m, entries, err = readSQLite(ctx, path)
	default:
		return nil, invalidArgument("unknown index format %q", format)
	}
	if err != nil {
		return nil, &LoadError{Location: path, Reason: "corrupt", Err: err}
	}
	if err := checkCompatible(m, entries, c.Embedder); err != nil {
		return nil, &LoadError{Location: path, Reason: "incompatible", Err: err}
	}
	if se, ok := c.Embedder.(domain.StatefulEmbedder); ok {
		if err := se.Restore(m.EmbedderState); err != nil {
			return nil, &LoadError{Location: path, Reason: "embedder state", Err: err}
		}
	}
	store, err := newStore(ctx, c, entries, m.Dimension, m.CreatedAt)
	if err != nil {
		return nil, &LoadError{Location: path, Reason: "seed backend", Err: err}
	}
	return store, nil
}

func checkCompatible(m manifest, entries []domain.IndexEntry, emb domain.Embedder) error {
	if m.SchemaVersion != SchemaVersion {
		return fmt.Errorf("schema version %d, want %d", m.SchemaVersion, SchemaVersion)
	}
	if m.Embedder != emb.Name() {
		return fmt.Errorf("built with embedder %q, configured %q", m.Embedder, emb.Name())
	}
	if m.Count != len(entries) || len(entries) == 0 {
		return fmt.Errorf("manifest lists %d entries, found %d", m.Count, len(entries))
	}
	if m.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", m.Dimension)
	}
	for i, e := range entries {
		if len(e.Vector) != m.Dimension {
			return fmt.Errorf("entry %d has dimension %d, want %d", i, len(e.Vector), m.Dimension)
		}
		if e.Ordinal != i {
			return fmt.Errorf("entry %d has ordinal %d", i, e.Ordinal)
		}
	}
	return nil
}

// writeAtomic writes through a temp file in the target's directory and
// renames it into place.
func writeAtomic(target string, write func(path string) error) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := write(tmpPath); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	committed = true
	syncDir(dir)
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
