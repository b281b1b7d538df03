// Package extract turns source documents into plain text. Binary formats
// (PDF, DOCX, legacy DOC) are external collaborators that register an
// Extractor per extension; a plain-text extractor is built in. Extraction
// runs under a wall-clock deadline so one stuck file can never block an
// indexing run.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Errors surfaced by the extraction layer. Both are per-file and
// non-fatal to an indexing run.
var (
	ErrTimeout     = errors.New("extraction timed out")
	ErrUnsupported = errors.New("unsupported file extension")
)

// DefaultTimeout bounds a single file's extraction.
const DefaultTimeout = 60 * time.Second

// Extractor converts one file into plain text. Implementations must be
// idempotent for the same file content and safe to abandon: when the
// deadline elapses the goroutine running Extract is orphaned and may
// still be executing, so an Extractor must not mutate shared state after
// its context is cancelled.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Registry maps lowercased file extensions (".pdf") to extractors.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry creates a registry with the built-in plain-text extractor
// registered for ".txt".
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(".txt", PlainText{})
	return r
}

// Register installs an extractor for an extension, replacing any
// previous one.
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Supports reports whether a file's extension has a registered extractor.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions, for file enumeration.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}

// Extract runs the extractor for the file's extension under the timeout.
// On deadline it returns ErrTimeout immediately; the underlying call is
// abandoned best-effort and may keep running in the background.
func (r *Registry) Extract(ctx context.Context, path string, timeout time.Duration) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	// Buffered so the orphaned worker can deliver late and exit.
	ch := make(chan result, 1)
	go func() {
		text, err := e.Extract(ctx, path)
		ch <- result{text, err}
	}()

	select {
	case res := <-ch:
		return res.text, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, filepath.Base(path))
		}
		return "", ctx.Err()
	}
}

// PlainText reads UTF-8 text files verbatim, dropping invalid byte
// sequences rather than failing.
type PlainText struct{}

// Extract implements Extractor.
func (PlainText) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
