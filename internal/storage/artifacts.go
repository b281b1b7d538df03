package storage

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/korenlab/lexkb/pkg/types"
)

// Artifact file names inside the index directory.
const (
	ChunksFile         = "chunks.jsonl"
	ChunksBackupFile   = "chunks.old.jsonl"
	EmbeddingsFile     = "embeddings.f32"
	EmbeddingsMetaFile = "embeddings.meta.json"
	IndexStatusFile    = "status_index.json"
	EmbedStatusFile    = "status_embed.json"
)

// ErrArtifactMissing is returned when a required index artifact does not
// exist. Searches treat it as "empty corpus", never as a failure.
var ErrArtifactMissing = errors.New("index artifact missing")

// Dir is a handle to the index directory.
type Dir struct {
	path string
}

// NewDir returns a handle, creating the directory if needed.
func NewDir(path string) (Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Dir{}, fmt.Errorf("create index dir: %w", err)
	}
	return Dir{path: path}, nil
}

func (d Dir) Path() string               { return d.path }
func (d Dir) ChunksPath() string         { return filepath.Join(d.path, ChunksFile) }
func (d Dir) ChunksBackupPath() string   { return filepath.Join(d.path, ChunksBackupFile) }
func (d Dir) EmbeddingsPath() string     { return filepath.Join(d.path, EmbeddingsFile) }
func (d Dir) EmbeddingsMetaPath() string { return filepath.Join(d.path, EmbeddingsMetaFile) }
func (d Dir) IndexStatusPath() string    { return filepath.Join(d.path, IndexStatusFile) }
func (d Dir) EmbedStatusPath() string    { return filepath.Join(d.path, EmbedStatusFile) }

// LatestMtime returns the newer modification time of the two artifacts.
// Either artifact missing yields ErrArtifactMissing.
func (d Dir) LatestMtime() (time.Time, error) {
	ci, err := os.Stat(d.ChunksPath())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrArtifactMissing, ChunksFile)
	}
	ei, err := os.Stat(d.EmbeddingsPath())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrArtifactMissing, EmbeddingsFile)
	}
	mt := ci.ModTime()
	if ei.ModTime().After(mt) {
		mt = ei.ModTime()
	}
	return mt, nil
}

// ReadChunks loads the chunk stream. Blank and malformed lines are
// skipped, not fatal: a partially corrupt stream still yields its valid
// prefix of the corpus.
func ReadChunks(path string) ([]types.ChunkRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, filepath.Base(path))
		}
		return nil, fmt.Errorf("open chunk stream: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []types.ChunkRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec types.ChunkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read chunk stream: %w", err)
	}
	return records, nil
}

// ChunkWriter streams records to a new chunk file, one JSON line each, in
// write order. The file is truncated on open: each indexing run rewrites
// the full stream.
type ChunkWriter struct {
	f     *os.File
	w     *bufio.Writer
	count int
}

// NewChunkWriter opens the stream for writing.
func NewChunkWriter(path string) (*ChunkWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create chunk stream: %w", err)
	}
	return &ChunkWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// Write appends one record.
func (cw *ChunkWriter) Write(rec types.ChunkRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal chunk record: %w", err)
	}
	if _, err := cw.w.Write(data); err != nil {
		return fmt.Errorf("write chunk record: %w", err)
	}
	if err := cw.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write chunk record: %w", err)
	}
	cw.count++
	return nil
}

// Count returns the number of records written so far.
func (cw *ChunkWriter) Count() int { return cw.count }

// Close flushes and closes the stream.
func (cw *ChunkWriter) Close() error {
	if err := cw.w.Flush(); err != nil {
		_ = cw.f.Close()
		return fmt.Errorf("flush chunk stream: %w", err)
	}
	return cw.f.Close()
}

// BackupChunks copies the current chunk stream aside so the indexer can
// reuse records from it while rewriting the authoritative file.
func BackupChunks(d Dir) error {
	src, err := os.Open(d.ChunksPath())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, ChunksFile)
		}
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(d.ChunksBackupPath())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// EmbeddingsMeta records which model produced the embedding artifact.
// A model or dimension change invalidates vector reuse.
type EmbeddingsMeta struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	Rows      int    `json:"rows"`
}

// ReadEmbeddingsMeta loads the sidecar; missing file returns
// ErrArtifactMissing.
func ReadEmbeddingsMeta(path string) (EmbeddingsMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return EmbeddingsMeta{}, fmt.Errorf("%w: %s", ErrArtifactMissing, filepath.Base(path))
		}
		return EmbeddingsMeta{}, err
	}
	var meta EmbeddingsMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return EmbeddingsMeta{}, fmt.Errorf("parse embeddings meta: %w", err)
	}
	return meta, nil
}

// WriteEmbeddings writes the matrix as a flat little-endian float32
// array and its meta sidecar. All rows must share one dimension.
func WriteEmbeddings(d Dir, vectors [][]float32, model string) error {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("embedding row %d has dimension %d, want %d", i, len(v), dim)
		}
	}

	f, err := os.Create(d.EmbeddingsPath())
	if err != nil {
		return fmt.Errorf("create embeddings: %w", err)
	}
	w := bufio.NewWriter(f)
	buf := make([]byte, 4)
	for _, row := range vectors {
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := w.Write(buf); err != nil {
				_ = f.Close()
				return fmt.Errorf("write embeddings: %w", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush embeddings: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	meta := EmbeddingsMeta{Model: model, Dimension: dim, Rows: len(vectors)}
	return AtomicWriteJSON(d.EmbeddingsMetaPath(), meta)
}

// ReadEmbeddings loads the flat float32 artifact as rows of dim values.
// A trailing partial row is dropped.
func ReadEmbeddings(path string, dim int) ([][]float32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dim)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, filepath.Base(path))
		}
		return nil, fmt.Errorf("read embeddings: %w", err)
	}

	rowBytes := 4 * dim
	rows := len(data) / rowBytes
	out := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		row := make([]float32, dim)
		base := r * rowBytes
		for c := 0; c < dim; c++ {
			bits := binary.LittleEndian.Uint32(data[base+4*c:])
			row[c] = math.Float32frombits(bits)
		}
		out[r] = row
	}
	return out, nil
}

// AtomicWriteJSON writes v as indented JSON via a temp file and rename,
// so a concurrent reader never observes a partial file.
func AtomicWriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
