package searcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korenlab/lexkb/internal/lexical"
	"github.com/korenlab/lexkb/internal/storage"
	"github.com/korenlab/lexkb/pkg/types"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = s.vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int   { return len(s.vec) }
func (s *stubEmbedder) Provider() string { return "stub" }
func (s *stubEmbedder) Model() string    { return "stub-model" }
func (s *stubEmbedder) Close() error     { return nil }

type corpusRow struct {
	rec types.ChunkRecord
	vec []float32
}

func writeCorpus(t *testing.T, dir storage.Dir, rows []corpusRow) {
	t.Helper()
	w, err := storage.NewChunkWriter(dir.ChunksPath())
	require.NoError(t, err)
	vectors := make([][]float32, 0, len(rows))
	for i, row := range rows {
		row.rec.ChunkIndex = i
		require.NoError(t, w.Write(row.rec))
		vectors = append(vectors, row.vec)
	}
	require.NoError(t, w.Close())
	require.NoError(t, storage.WriteEmbeddings(dir, vectors, "stub-model"))
}

func record(docID, folder, path, title, text string, tokens ...string) types.ChunkRecord {
	return types.ChunkRecord{
		ChunkID:    types.MakeChunkID(docID, 0),
		DocID:      docID,
		SourcePath: path,
		FolderTag:  folder,
		LocalIndex: 0,
		Title:      title,
		Text:       text,
		LexTokens:  tokens,
	}
}

func newTestEngine(t *testing.T, emb *stubEmbedder) (*Engine, storage.Dir) {
	t.Helper()
	dir, err := storage.NewDir(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	return New(dir, emb, lexical.DefaultResources(), DefaultConfig()), dir
}

func TestSearchEmptyCorpusNoError(t *testing.T) {
	eng, _ := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	results, err := eng.Search(context.Background(), "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchFusedRanking(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	eng, dir := newTestEngine(t, emb)
	writeCorpus(t, dir, []corpusRow{
		{record("a", "laws", "laws/a.txt", "first ruling", "the contract terms", "contract"), []float32{1, 0}},
		{record("b", "laws", "laws/b.txt", "second ruling", "general provisions", "misc"), []float32{0.6, 0.8}},
		{record("c", "laws", "laws/c.txt", "third ruling", "unrelated matter", "other"), []float32{0, 1}},
	})

	results, err := eng.Search(context.Background(), "contract", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2, "zero-similarity row falls below the floor")

	// a: 0.70*1.0 + 0.30*1.0 (only lexical hit, so batch max); b: 0.70*0.6.
	assert.Equal(t, "a", results[0].DocID)
	assert.InDelta(t, 1.0, results[0].BaseScore, 1e-4)
	assert.Equal(t, "b", results[1].DocID)
	assert.InDelta(t, 0.42, results[1].BaseScore, 1e-4)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchScoreFloor(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	eng, dir := newTestEngine(t, emb)
	writeCorpus(t, dir, []corpusRow{
		// cosine 0.1, no lexical match: base 0.07 < 0.15.
		{record("low", "laws", "laws/low.txt", "weak", "nothing relevant", "misc"), []float32{0.1, 0.995}},
	})

	results, err := eng.Search(context.Background(), "contract", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchTitleAndPathBonus(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	eng, dir := newTestEngine(t, emb)
	writeCorpus(t, dir, []corpusRow{
		{record("a", "laws", "laws/general.txt", "contract overview", "the terms within", "contract"), []float32{1, 0}},
		{record("b", "contracts", "contracts/misc.txt", "other title", "other body", "misc"), []float32{0.9, 0.436}},
	})

	results, err := eng.Search(context.Background(), "contract", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// With df equal to half the corpus the term's idf is zero, so the
	// lexical side contributes nothing here and base is pure cosine.
	// a: base 0.70*1.0 plus title bonus 0.6.
	assert.Equal(t, "a", results[0].DocID)
	assert.InDelta(t, 1.3, results[0].Score, 1e-3)
	// b: base 0.70*0.9 plus path bonus 0.4 ("contract" inside "contracts/").
	assert.Equal(t, "b", results[1].DocID)
	assert.InDelta(t, 0.63+0.4, results[1].Score, 1e-3)
}

func TestConceptBonusNeedsPreviewHit(t *testing.T) {
	eng, _ := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	withConcept := record("a", "laws", "laws/a.txt", "no match here", "severance pay is due on dismissal", "severance")
	without := record("b", "laws", "laws/b.txt", "no match here", "entirely different subject", "misc")

	assert.InDelta(t, 0.5, eng.bonusScore(&withConcept, []string{"severance"}), 1e-9)
	assert.InDelta(t, 0.0, eng.bonusScore(&without, []string{"severance"}), 1e-9)
}

func TestConceptPreviewWindowCountsRunes(t *testing.T) {
	eng, _ := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	// Hebrew runs two bytes per letter, so ~280 leading characters are
	// well past 500 bytes while still inside the 500-character window.
	inside := record("a", "laws", "laws/a.txt", "no match here",
		strings.Repeat("עבודה ", 47)+"פיצויים מגיעים לעובד", "misc")
	assert.InDelta(t, 0.5, eng.bonusScore(&inside, []string{"פיצויים"}), 1e-9)

	// Past 500 characters the concept no longer counts.
	beyond := record("b", "laws", "laws/b.txt", "no match here",
		strings.Repeat("עבודה ", 90)+"פיצויים מגיעים לעובד", "misc")
	assert.InDelta(t, 0.0, eng.bonusScore(&beyond, []string{"פיצויים"}), 1e-9)
}

func TestBonusCap(t *testing.T) {
	eng, _ := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	rec := record("a", "laws", "laws/severance-dismissal-pension.txt",
		"severance dismissal pension overtime harassment",
		"severance dismissal pension overtime harassment", "severance")
	tokens := []string{"severance", "dismissal", "pension", "overtime", "harassment"}

	assert.InDelta(t, 3.0, eng.bonusScore(&rec, tokens), 1e-9)
}

func TestSearchFilters(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	eng, dir := newTestEngine(t, emb)
	writeCorpus(t, dir, []corpusRow{
		{record("a", "laws", "laws/a.txt", "ruling a", "contract body a", "contract"), []float32{1, 0}},
		{record("b", "rulings", "rulings/b.txt", "ruling b", "contract body b", "contract"), []float32{1, 0}},
	})

	results, err := eng.Search(context.Background(), "contract", 10, map[string]string{"folder_tag": "RULINGS"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].DocID)

	results, err = eng.Search(context.Background(), "contract", 10, map[string]string{"folder_tag": "archive"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchCachedResultsAreIsolated(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	eng, dir := newTestEngine(t, emb)
	writeCorpus(t, dir, []corpusRow{
		{record("a", "laws", "laws/a.txt", "ruling a", "contract body a", "contract"), []float32{1, 0}},
		{record("b", "laws", "laws/b.txt", "ruling b", "contract body b", "contract"), []float32{0.9, 0.436}},
	})

	first, err := eng.Search(context.Background(), "contract", 10, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Callers may rewrite what they receive, e.g. when merging ad-hoc
	// results; the cached copy must not see it.
	first[0].Score = -1
	first[0].DocID = "mutated"

	second, err := eng.Search(context.Background(), "contract", 10, nil)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "a", second[0].DocID)
	assert.Greater(t, second[0].Score, 0.0)
}

func TestSearchEmbedFailureReturnsEmpty(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	eng, dir := newTestEngine(t, emb)
	writeCorpus(t, dir, []corpusRow{
		{record("a", "laws", "laws/a.txt", "ruling", "contract body", "contract"), []float32{1, 0}},
	})

	emb.err = errors.New("provider down")
	results, err := eng.Search(context.Background(), "contract", 10, nil)
	require.NoError(t, err, "embedding failure degrades, never raises")
	assert.Empty(t, results)
}

func TestSearchReloadsOnNewerArtifacts(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	eng, dir := newTestEngine(t, emb)
	writeCorpus(t, dir, []corpusRow{
		{record("old", "laws", "laws/a.txt", "ruling", "old contract text", "contract"), []float32{1, 0}},
	})

	results, err := eng.Search(context.Background(), "contract", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "old", results[0].DocID)

	writeCorpus(t, dir, []corpusRow{
		{record("new", "laws", "laws/a.txt", "ruling", "new contract text", "contract"), []float32{1, 0}},
	})
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(dir.ChunksPath(), future, future))

	results, err = eng.Search(context.Background(), "contract", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].DocID)
}

func TestRankAdhoc(t *testing.T) {
	eng, _ := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	scores := eng.RankAdhoc([]float32{3, 0}, [][]float32{
		{2, 0},
		{0, 5},
		{0, 0},
	})
	require.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores[0], 1e-6)
	assert.InDelta(t, 0.0, scores[1], 1e-6)
	assert.Equal(t, 0.0, scores[2], "zero vector guarded")

	assert.Nil(t, eng.RankAdhoc([]float32{1, 0}, nil))
}

func TestRowsAfterLoad(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	eng, dir := newTestEngine(t, emb)
	assert.Equal(t, 0, eng.Rows(context.Background()))

	writeCorpus(t, dir, []corpusRow{
		{record("a", "laws", "laws/a.txt", "ruling", "contract body", "contract"), []float32{1, 0}},
	})
	assert.Equal(t, 1, eng.Rows(context.Background()))
}
