package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowExtractor struct {
	delay time.Duration
	text  string
}

func (s slowExtractor) Extract(ctx context.Context, _ string) (string, error) {
	select {
	case <-time.After(s.delay):
		return s.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestPlainTextExtract(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(fp, []byte("hello world"), 0644))

	r := NewRegistry()
	text, err := r.Extract(context.Background(), fp, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestPlainTextInvalidUTF8Dropped(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(fp, []byte{'o', 'k', 0xff, '!'}, 0644))

	r := NewRegistry()
	text, err := r.Extract(context.Background(), fp, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok!", text)
}

func TestUnsupportedExtension(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract(context.Background(), "file.xyz", time.Second)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExtractTimeout(t *testing.T) {
	r := NewRegistry()
	r.Register(".pdf", slowExtractor{delay: 2 * time.Second, text: "never"})

	start := time.Now()
	_, err := r.Extract(context.Background(), "stuck.pdf", 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second, "timeout must not wait for the worker")
}

func TestRegisterOverridesAndSupports(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Supports("a/b/notes.TXT"))
	assert.False(t, r.Supports("scan.pdf"))

	r.Register(".PDF", slowExtractor{delay: 0, text: "pdf text"})
	assert.True(t, r.Supports("scan.pdf"))

	text, err := r.Extract(context.Background(), "scan.pdf", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pdf text", text)
}
