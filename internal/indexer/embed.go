package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/korenlab/lexkb/internal/embedder"
	"github.com/korenlab/lexkb/internal/storage"
	"github.com/korenlab/lexkb/pkg/types"
)

// DefaultEmbedBatch is how many chunks go to the provider per progress
// step.
const DefaultEmbedBatch = 64

// EmbedProgress is the embedding job's progress payload.
type EmbedProgress struct {
	Phase          string `json:"phase"`
	TotalChunks    int    `json:"total_chunks"`
	EmbeddedChunks int    `json:"embedded_chunks"`
	ReusedVectors  int    `json:"reused_vectors"`
	Model          string `json:"model"`
	Dimension      int    `json:"dimension"`
	Output         string `json:"output,omitempty"`
}

// Embed builds the embedding matrix for the current chunk stream.
// Vectors from the previous run are reused for chunks whose id and text
// are unchanged, provided the artifact was produced by the same model
// and dimension. Provider failure is terminal for the job; the previous
// artifact stays on disk untouched.
func (ix *Indexer) Embed(ctx context.Context, emb embedder.Embedder, batchSize int) (EmbedProgress, error) {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatch
	}
	started := time.Now()
	sm := NewStatusManager[EmbedProgress](ix.dir.EmbedStatusPath())

	records, err := storage.ReadChunks(ix.dir.ChunksPath())
	if err != nil {
		_ = sm.Fail(fmt.Sprintf("read chunk stream: %v", err))
		return EmbedProgress{}, err
	}

	prog := EmbedProgress{
		Phase:       "embed",
		TotalChunks: len(records),
		Model:       emb.Model(),
		Dimension:   emb.Dimension(),
		Output:      ix.dir.EmbeddingsPath(),
	}
	if err := sm.Start("Embedding started", prog); err != nil {
		return prog, err
	}

	prior := ix.loadPriorVectors(emb.Model(), emb.Dimension())

	vectors := make([][]float32, len(records))
	var missIdx []int
	for i, rec := range records {
		if v, ok := prior[rec.ChunkID]; ok && v.text == rec.Text {
			vectors[i] = v.vector
			prog.ReusedVectors++
			prog.EmbeddedChunks++
			continue
		}
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missIdx); start += batchSize {
		end := start + batchSize
		if end > len(missIdx) {
			end = len(missIdx)
		}
		texts := make([]string, 0, end-start)
		for _, i := range missIdx[start:end] {
			texts = append(texts, records[i].Text)
		}

		batch, err := emb.EmbedBatch(ctx, texts)
		if err != nil {
			_ = sm.Fail(fmt.Sprintf("embedding provider: %v", err))
			return prog, fmt.Errorf("embedding provider: %w", err)
		}
		for j, v := range batch {
			if len(v) != emb.Dimension() {
				err := fmt.Errorf("provider returned dimension %d, want %d", len(v), emb.Dimension())
				_ = sm.Fail(err.Error())
				return prog, err
			}
			vectors[missIdx[start+j]] = v
		}
		prog.EmbeddedChunks += len(batch)

		_ = sm.Update(
			fmt.Sprintf("Embedded %d/%d chunks", prog.EmbeddedChunks, prog.TotalChunks),
			prog, eta(started, prog.EmbeddedChunks, prog.TotalChunks))
	}

	if err := storage.WriteEmbeddings(ix.dir, vectors, emb.Model()); err != nil {
		_ = sm.Fail(fmt.Sprintf("Fatal error: %v", err))
		return prog, err
	}

	if err := sm.Complete("Embedding completed", prog); err != nil {
		return prog, err
	}
	return prog, nil
}

type priorVector struct {
	vector []float32
	text   string
}

// loadPriorVectors maps chunk_id to the previous run's vector and text.
// Reuse requires the backed-up chunk stream the matrix was built
// against plus a matching model stamp; anything short of that degrades
// to re-embedding everything.
func (ix *Indexer) loadPriorVectors(model string, dimension int) map[string]priorVector {
	meta, err := storage.ReadEmbeddingsMeta(ix.dir.EmbeddingsMetaPath())
	if err != nil || meta.Model != model || meta.Dimension != dimension {
		return nil
	}
	oldRecords, err := storage.ReadChunks(ix.dir.ChunksBackupPath())
	if err != nil {
		if !errors.Is(err, storage.ErrArtifactMissing) {
			return nil
		}
		// No backup means the current stream may still be the one the
		// matrix was built from (embed re-run without reindex).
		oldRecords, err = ix.currentIfAligned(meta)
		if err != nil {
			return nil
		}
	}
	// Row-alignment guard: the matrix pairs with the stream it was
	// built from, so a count mismatch means unknown provenance.
	if len(oldRecords) != meta.Rows {
		return nil
	}
	oldVectors, err := storage.ReadEmbeddings(ix.dir.EmbeddingsPath(), meta.Dimension)
	if err != nil {
		return nil
	}

	n := len(oldRecords)
	if len(oldVectors) < n {
		n = len(oldVectors)
	}
	prior := make(map[string]priorVector, n)
	for i := 0; i < n; i++ {
		prior[oldRecords[i].ChunkID] = priorVector{
			vector: oldVectors[i],
			text:   oldRecords[i].Text,
		}
	}
	return prior
}

func (ix *Indexer) currentIfAligned(meta storage.EmbeddingsMeta) ([]types.ChunkRecord, error) {
	records, err := storage.ReadChunks(ix.dir.ChunksPath())
	if err != nil {
		return nil, err
	}
	if len(records) != meta.Rows {
		return nil, fmt.Errorf("row count changed since matrix was written")
	}
	return records, nil
}
