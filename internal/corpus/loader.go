// Package corpus reads raw patent documents from a directory.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lmittmann/tint"

	"patentrag/internal/domain"
)

// ErrCorpusRead is matched by every CorpusReadError.
var ErrCorpusRead = errors.New("corpus read error")

// CorpusReadError reports a corpus directory that cannot serve as an index source.
type CorpusReadError struct {
	Dir    string
	Reason string
	Err    error
}

func (e *CorpusReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corpus %s: %s: %v", e.Dir, e.Reason, e.Err)
	}
	return fmt.Sprintf("corpus %s: %s", e.Dir, e.Reason)
}

func (e *CorpusReadError) Unwrap() error { return e.Err }

func (e *CorpusReadError) Is(target error) bool { return target == ErrCorpusRead }

// DefaultExtensions are the file types treated as documents.
var DefaultExtensions = []string{".md", ".markdown", ".txt"}

// Loader reads documents from a directory tree.
type Loader struct {
	extensions map[string]struct{}
	logger     *slog.Logger
	readFile   func(string) ([]byte, error)
}

// NewLoader creates a loader accepting the given extensions (DefaultExtensions if empty).
func NewLoader(extensions []string) *Loader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &Loader{extensions: allowed, logger: slog.Default(), readFile: os.ReadFile}
}

// WithLogger sets the logger that reports skipped files.
func (l *Loader) WithLogger(logger *slog.Logger) *Loader {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Load returns one document per readable file under dir, ordered by path.
// Unreadable files are logged and skipped; it fails only when nothing is readable.
func (l *Loader) Load(dir string) ([]domain.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &CorpusReadError{Dir: dir, Reason: "cannot stat directory", Err: err}
	}
	if !info.IsDir() {
		return nil, &CorpusReadError{Dir: dir, Reason: "not a directory"}
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := l.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, &CorpusReadError{Dir: dir, Reason: "walk failed", Err: err}
	}
	sort.Strings(paths)

	documents := make([]domain.Document, 0, len(paths))
	var lastErr error
	for _, p := range paths {
		data, err := l.readFile(p)
		if err != nil {
			l.logger.Warn("skipping unreadable document", slog.String("path", p), tint.Err(err))
			lastErr = err
			continue
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			rel = p
		}
		documents = append(documents, newDocument(filepath.ToSlash(rel), p, string(data)))
	}
	if len(documents) == 0 {
		if lastErr != nil {
			return nil, &CorpusReadError{Dir: dir, Reason: "no readable documents", Err: lastErr}
		}
		return nil, &CorpusReadError{Dir: dir, Reason: "no documents found"}
	}
	return documents, nil
}

func newDocument(id, path, content string) domain.Document {
	ext := strings.ToLower(filepath.Ext(path))
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return domain.Document{
		ID:      id,
		Path:    path,
		Title:   extractTitle(content),
		Content: content,
		Metadata: map[string]string{
			domain.MetaPatentNumber: stem,
			domain.MetaExtension:    ext,
		},
	}
}

// extractTitle returns the first markdown heading, without the leading hashes
// and without a "<number> - " prefix.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(line, "#"))
		if _, rest, ok := strings.Cut(title, " - "); ok && rest != "" {
			title = strings.TrimSpace(rest)
		}
		return title
	}
	return ""
}
