package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korenlab/lexkb/internal/storage"
)

// mockEmbedder produces deterministic vectors and records every text it
// was asked to embed.
type mockEmbedder struct {
	mu    sync.Mutex
	seen  []string
	model string
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{model: "mock-model"}
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		m.seen = append(m.seen, text)
		out[i] = []float32{float32(len(text)), 1, 0, 0}
	}
	return out, nil
}

func (m *mockEmbedder) Dimension() int   { return 4 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return m.model }
func (m *mockEmbedder) Close() error     { return nil }

func (m *mockEmbedder) embedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

func (m *mockEmbedder) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = nil
}

func TestEmbedWritesAlignedMatrix(t *testing.T) {
	ix, dir := testIndexer(t)
	src := t.TempDir()
	writeSourceFile(t, src, "laws/employment.txt", sectionedDoc(3))

	_, err := ix.Reindex(context.Background(), src)
	require.NoError(t, err)

	emb := newMockEmbedder()
	prog, err := ix.Embed(context.Background(), emb, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, prog.TotalChunks)
	assert.Equal(t, 3, prog.EmbeddedChunks)
	assert.Equal(t, 0, prog.ReusedVectors)

	snap, err := storage.LoadSnapshot(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Rows())
	assert.Equal(t, 4, snap.Dimension)
	assert.Equal(t, "mock-model", snap.Meta.Model)

	st := LoadStatus[EmbedProgress](dir.EmbedStatusPath())
	assert.Equal(t, JobDone, st.State)
	assert.Equal(t, "embed", st.Progress.Phase)
}

func TestEmbedReusesUnchangedVectors(t *testing.T) {
	ix, _ := testIndexer(t)
	src := t.TempDir()
	writeSourceFile(t, src, "laws/employment.txt", sectionedDoc(2))
	writeSourceFile(t, src, "rulings/case.txt", sectionedDoc(1))

	_, err := ix.Reindex(context.Background(), src)
	require.NoError(t, err)

	emb := newMockEmbedder()
	_, err = ix.Embed(context.Background(), emb, 0)
	require.NoError(t, err)
	require.Equal(t, 3, emb.embedCount())

	// Unchanged tree: reindex backs up the stream, embed reuses all.
	_, err = ix.Reindex(context.Background(), src)
	require.NoError(t, err)

	emb.reset()
	prog, err := ix.Embed(context.Background(), emb, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, prog.ReusedVectors)
	assert.Equal(t, 0, emb.embedCount())
}

func TestEmbedModelChangeInvalidatesReuse(t *testing.T) {
	ix, _ := testIndexer(t)
	src := t.TempDir()
	writeSourceFile(t, src, "laws/employment.txt", sectionedDoc(2))

	_, err := ix.Reindex(context.Background(), src)
	require.NoError(t, err)

	emb := newMockEmbedder()
	_, err = ix.Embed(context.Background(), emb, 0)
	require.NoError(t, err)

	_, err = ix.Reindex(context.Background(), src)
	require.NoError(t, err)

	// Same corpus, different model: every vector must be rebuilt.
	changed := newMockEmbedder()
	changed.model = "other-model"
	prog, err := ix.Embed(context.Background(), changed, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.ReusedVectors)
	assert.Equal(t, 2, changed.embedCount())
}

func TestEmbedRerunWithoutReindex(t *testing.T) {
	ix, dir := testIndexer(t)
	src := t.TempDir()
	writeSourceFile(t, src, "laws/employment.txt", sectionedDoc(2))

	_, err := ix.Reindex(context.Background(), src)
	require.NoError(t, err)

	emb := newMockEmbedder()
	_, err = ix.Embed(context.Background(), emb, 0)
	require.NoError(t, err)

	// No backup on disk: the current stream is what the matrix was
	// built from, so a straight re-run reuses everything.
	if err := os.Remove(dir.ChunksBackupPath()); err != nil {
		require.ErrorIs(t, err, fs.ErrNotExist)
	}

	emb.reset()
	prog, err := ix.Embed(context.Background(), emb, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, prog.ReusedVectors)
	assert.Equal(t, 0, emb.embedCount())
}

func TestEmbedMissingChunkStream(t *testing.T) {
	ix, _ := testIndexer(t)
	_, err := ix.Embed(context.Background(), newMockEmbedder(), 0)
	assert.ErrorIs(t, err, storage.ErrArtifactMissing)
}

func TestEmbedStatusOnEmptyCorpus(t *testing.T) {
	ix, dir := testIndexer(t)
	w, err := storage.NewChunkWriter(dir.ChunksPath())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	prog, err := ix.Embed(context.Background(), newMockEmbedder(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.TotalChunks)

	_, err = os.Stat(filepath.Join(dir.Path(), storage.EmbeddingsMetaFile))
	assert.NoError(t, err, "meta sidecar written even for an empty corpus")
}
