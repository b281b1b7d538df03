package storage

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/korenlab/lexkb/pkg/types"
)

// Snapshot is a fully loaded, immutable view of the two index artifacts
// with their row counts reconciled.
type Snapshot struct {
	Records   []types.ChunkRecord
	Vectors   [][]float32
	Dimension int
	Meta      EmbeddingsMeta
	// LoadedMtime is the artifacts' modification time at load, used for
	// staleness checks.
	LoadedMtime time.Time
}

// Rows returns the reconciled corpus size.
func (s *Snapshot) Rows() int { return len(s.Records) }

// LoadSnapshot reads both artifacts. The embedding dimension comes from
// the meta sidecar when present, else fallbackDim. A row-count mismatch
// between the chunk stream and the matrix is recovered by truncating
// both to the common prefix; it is logged, never fatal.
func LoadSnapshot(d Dir, fallbackDim int) (*Snapshot, error) {
	mtime, err := d.LatestMtime()
	if err != nil {
		return nil, err
	}

	records, err := ReadChunks(d.ChunksPath())
	if err != nil {
		return nil, err
	}

	dim := fallbackDim
	meta, metaErr := ReadEmbeddingsMeta(d.EmbeddingsMetaPath())
	if metaErr == nil && meta.Dimension > 0 {
		dim = meta.Dimension
	} else if metaErr != nil && !errors.Is(metaErr, ErrArtifactMissing) {
		return nil, metaErr
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension unknown: no meta sidecar and no configured fallback")
	}

	vectors, err := ReadEmbeddings(d.EmbeddingsPath(), dim)
	if err != nil {
		return nil, err
	}

	if len(records) != len(vectors) {
		limit := len(records)
		if len(vectors) < limit {
			limit = len(vectors)
		}
		log.Printf("[storage] row mismatch: chunks=%d embeddings=%d, truncating to %d",
			len(records), len(vectors), limit)
		records = records[:limit]
		vectors = vectors[:limit]
	}

	return &Snapshot{
		Records:     records,
		Vectors:     vectors,
		Dimension:   dim,
		Meta:        meta,
		LoadedMtime: mtime,
	}, nil
}
