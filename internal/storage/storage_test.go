package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korenlab/lexkb/pkg/types"
)

func testRecord(docID string, local int) types.ChunkRecord {
	return types.ChunkRecord{
		ChunkID:    types.MakeChunkID(docID, local),
		DocID:      docID,
		SourcePath: "contracts/employment.txt",
		FolderTag:  "contracts",
		ChunkIndex: local,
		LocalIndex: local,
		Title:      "employment terms",
		Text:       "the employee is entitled to severance pay",
		LexTokens:  []string{"employee", "entitled", "severance", "pay"},
	}
}

func TestChunkStreamRoundtrip(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	w, err := NewChunkWriter(dir.ChunksPath())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Write(testRecord("doc1", i)))
	}
	assert.Equal(t, 3, w.Count())
	require.NoError(t, w.Close())

	records, err := ReadChunks(dir.ChunksPath())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "doc1:2", records[2].ChunkID)
	assert.Equal(t, []string{"employee", "entitled", "severance", "pay"}, records[0].LexTokens)
}

func TestReadChunksSkipsMalformedLines(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	content := `{"chunk_id":"d:0","doc_id":"d","local_index":0,"text":"ok"}
not json at all

{"chunk_id":"d:1","doc_id":"d","local_index":1,"text":"also ok"}
`
	require.NoError(t, os.WriteFile(dir.ChunksPath(), []byte(content), 0o644))

	records, err := ReadChunks(dir.ChunksPath())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "also ok", records[1].Text)
}

func TestReadChunksMissing(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	_, err = ReadChunks(dir.ChunksPath())
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestEmbeddingsRoundtrip(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	vectors := [][]float32{
		{0.1, 0.2, 0.3},
		{-1, 0, 1},
	}
	require.NoError(t, WriteEmbeddings(dir, vectors, "test-model"))

	meta, err := ReadEmbeddingsMeta(dir.EmbeddingsMetaPath())
	require.NoError(t, err)
	assert.Equal(t, "test-model", meta.Model)
	assert.Equal(t, 3, meta.Dimension)
	assert.Equal(t, 2, meta.Rows)

	loaded, err := ReadEmbeddings(dir.EmbeddingsPath(), 3)
	require.NoError(t, err)
	assert.Equal(t, vectors, loaded)
}

func TestWriteEmbeddingsRejectsRaggedRows(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	err = WriteEmbeddings(dir, [][]float32{{1, 2}, {1, 2, 3}}, "m")
	assert.Error(t, err)
}

func TestLoadSnapshotReconcilesRowMismatch(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	w, err := NewChunkWriter(dir.ChunksPath())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Write(testRecord("doc1", i)))
	}
	require.NoError(t, w.Close())

	// Only 3 embedding rows for 5 chunk records.
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	require.NoError(t, WriteEmbeddings(dir, vectors, "m"))

	snap, err := LoadSnapshot(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Rows())
	assert.Len(t, snap.Vectors, 3)
	assert.Equal(t, 2, snap.Dimension)
	assert.False(t, snap.LoadedMtime.IsZero())
}

func TestLoadSnapshotTruncatedEmbeddingFile(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	w, err := NewChunkWriter(dir.ChunksPath())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		require.NoError(t, w.Write(testRecord("doc1", i)))
	}
	require.NoError(t, w.Close())

	require.NoError(t, WriteEmbeddings(dir, [][]float32{{1, 0, 0}, {0, 1, 0}}, "m"))

	// Artificially truncate the matrix mid-row: the partial row drops and
	// reconciliation shrinks the corpus to one row.
	raw, err := os.ReadFile(dir.EmbeddingsPath())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dir.EmbeddingsPath(), raw[:len(raw)-6], 0o644))

	snap, err := LoadSnapshot(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Rows())
}

func TestLoadSnapshotMissingArtifacts(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	_, err = LoadSnapshot(dir, 3)
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestBackupChunks(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	w, err := NewChunkWriter(dir.ChunksPath())
	require.NoError(t, err)
	require.NoError(t, w.Write(testRecord("doc1", 0)))
	require.NoError(t, w.Close())

	require.NoError(t, BackupChunks(dir))

	backed, err := ReadChunks(dir.ChunksBackupPath())
	require.NoError(t, err)
	require.Len(t, backed, 1)
}

func TestAtomicWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.json")

	require.NoError(t, AtomicWriteJSON(path, map[string]any{"state": "running"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state": "running"`)

	// No stray temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
