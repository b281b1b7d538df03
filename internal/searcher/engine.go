package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/korenlab/lexkb/internal/embedder"
	"github.com/korenlab/lexkb/internal/lexical"
	"github.com/korenlab/lexkb/internal/storage"
	"github.com/korenlab/lexkb/pkg/types"
)

// Config tunes the scoring pipeline.
type Config struct {
	TopK          int     // default result count
	VectorWeight  float64 // fused = VectorWeight*vec + LexicalWeight*lex
	LexicalWeight float64
	ScoreFloor    float64 // fused scores below this are discarded
	BonusCap      float64 // metadata bonus ceiling
	TitleBonus    float64 // per query token found in the title
	PathBonus     float64 // per query token found in the source path
	ConceptBonus  float64 // per domain concept found in the leading text
	PreviewChars  int     // leading text window for the concept bonus
	CacheSize     int     // query cache entries, 0 disables
	FallbackDim   int     // matrix dimension when the meta sidecar is absent
}

// DefaultConfig returns the production scoring parameters.
func DefaultConfig() Config {
	return Config{
		TopK:          10,
		VectorWeight:  0.70,
		LexicalWeight: 0.30,
		ScoreFloor:    0.15,
		BonusCap:      3.0,
		TitleBonus:    0.6,
		PathBonus:     0.4,
		ConceptBonus:  0.5,
		PreviewChars:  500,
		CacheSize:     256,
	}
}

// snapshot is one fully built, immutable view of the index.
type snapshot struct {
	records []types.ChunkRecord
	vectors [][]float32 // unit-normalized rows
	bm25    *lexical.BM25
	mtime   time.Time
}

// Engine is the long-lived hybrid search engine.
type Engine struct {
	dir storage.Dir
	emb embedder.Embedder
	res lexical.Resources
	cfg Config

	snap   atomic.Pointer[snapshot]
	reload singleflight.Group
	cache  *lru.Cache[[32]byte, []types.SearchResult]
}

// New creates an Engine. The snapshot loads lazily on first query.
func New(dir storage.Dir, emb embedder.Embedder, res lexical.Resources, cfg Config) *Engine {
	e := &Engine{dir: dir, emb: emb, res: res, cfg: cfg}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[[32]byte, []types.SearchResult](cfg.CacheSize)
		if err == nil {
			e.cache = cache
		}
	}
	return e
}

// Search returns up to topK ranked results. topK <= 0 uses the default.
// All query-side failures degrade to an empty list with a nil error.
func (e *Engine) Search(ctx context.Context, query string, topK int, filters map[string]string) ([]types.SearchResult, error) {
	if topK <= 0 {
		topK = e.cfg.TopK
	}

	snap := e.current(ctx)
	if snap == nil || len(snap.records) == 0 {
		return nil, nil
	}

	var cacheKey [32]byte
	if e.cache != nil {
		cacheKey = queryCacheKey(query, topK, filters)
		if res, ok := e.cache.Get(cacheKey); ok {
			return copyResults(res), nil
		}
	}

	qvec, err := e.emb.EmbedQuery(ctx, query)
	if err != nil {
		log.Printf("[search] query embedding failed: %v", err)
		return nil, nil
	}
	qvec = embedder.NormalizeVector(qvec)

	fused := e.fusedScores(snap, qvec, query)
	qTokens := lexical.QueryTokens(query, e.res)

	order := make([]int, len(fused))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return fused[order[a]] > fused[order[b]] })

	results := make([]types.SearchResult, 0, topK)
	for _, idx := range order {
		if len(results) >= topK {
			break
		}
		base := fused[idx]
		if base < e.cfg.ScoreFloor {
			continue
		}
		rec := &snap.records[idx]
		if !matchesFilters(rec, filters) {
			continue
		}

		bonus := e.bonusScore(rec, qTokens)
		results = append(results, types.SearchResult{
			Score:      round4(base + bonus),
			BaseScore:  round4(base),
			SourcePath: rec.SourcePath,
			Title:      rec.Title,
			ChunkIndex: rec.ChunkIndex,
			Text:       rec.Text,
			DocID:      rec.DocID,
		})
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if len(results) > topK {
		results = results[:topK]
	}

	if e.cache != nil {
		e.cache.Add(cacheKey, copyResults(results))
	}
	return results, nil
}

// copyResults keeps cached result slices private: callers may re-sort
// or rewrite what they receive without corrupting later cache hits.
func copyResults(results []types.SearchResult) []types.SearchResult {
	if results == nil {
		return nil
	}
	out := make([]types.SearchResult, len(results))
	copy(out, results)
	return out
}

// RankAdhoc scores session-only chunk vectors against a query vector by
// plain cosine similarity. No lexical term, no bonus, no floor; merging
// into a persistent result set is the caller's concern.
func (e *Engine) RankAdhoc(queryVec []float32, chunkVecs [][]float32) []float64 {
	if len(chunkVecs) == 0 {
		return nil
	}
	scores := make([]float64, len(chunkVecs))
	qNorm := vectorNorm(queryVec)
	for i, v := range chunkVecs {
		vNorm := vectorNorm(v)
		if qNorm == 0 || vNorm == 0 {
			continue
		}
		scores[i] = dot(queryVec, v) / (qNorm * vNorm)
	}
	return scores
}

// EmbedQuery exposes the engine's embedder for ad-hoc flows so session
// chunks are embedded with the same model as the index.
func (e *Engine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.emb.EmbedQuery(ctx, text)
}

// Rows reports the loaded corpus size, refreshing the snapshot first.
func (e *Engine) Rows(ctx context.Context) int {
	snap := e.current(ctx)
	if snap == nil {
		return 0
	}
	return len(snap.records)
}

// current returns a fresh snapshot, reloading when the artifacts are
// newer than the loaded state. Missing or unreadable artifacts yield
// nil, which callers treat as an empty corpus.
func (e *Engine) current(_ context.Context) *snapshot {
	mtime, err := e.dir.LatestMtime()
	if err != nil {
		return nil
	}

	snap := e.snap.Load()
	if snap != nil && len(snap.records) > 0 && !mtime.After(snap.mtime) {
		return snap
	}

	v, err, _ := e.reload.Do("reload", func() (interface{}, error) {
		// Another goroutine may have published while we waited.
		if cur := e.snap.Load(); cur != nil && len(cur.records) > 0 && !mtime.After(cur.mtime) {
			return cur, nil
		}
		fresh, err := e.buildSnapshot()
		if err != nil {
			return nil, err
		}
		e.snap.Store(fresh)
		if e.cache != nil {
			e.cache.Purge()
		}
		return fresh, nil
	})
	if err != nil {
		log.Printf("[search] index load failed: %v", err)
		return nil
	}
	return v.(*snapshot)
}

// buildSnapshot loads both artifacts and constructs the immutable view:
// rows normalized for cosine scoring and the BM25 index over lex_tokens
// (tokenizing on the fly for records without them).
func (e *Engine) buildSnapshot() (*snapshot, error) {
	loaded, err := storage.LoadSnapshot(e.dir, e.cfg.FallbackDim)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(loaded.Vectors))
	for i, v := range loaded.Vectors {
		vectors[i] = embedder.NormalizeVector(v)
	}

	corpus := make([][]string, len(loaded.Records))
	for i, rec := range loaded.Records {
		tokens := rec.LexTokens
		if len(tokens) == 0 {
			tokens = lexical.QueryTokens(rec.Text, e.res)
		}
		corpus[i] = tokens
	}

	log.Printf("[search] loaded %d chunks", len(loaded.Records))
	return &snapshot{
		records: loaded.Records,
		vectors: vectors,
		bm25:    lexical.NewBM25(corpus),
		mtime:   loaded.LoadedMtime,
	}, nil
}

// fusedScores computes VectorWeight*cosine + LexicalWeight*bm25, with
// the BM25 batch normalized by its maximum into [0,1].
func (e *Engine) fusedScores(snap *snapshot, qvec []float32, query string) []float64 {
	n := len(snap.records)
	fused := make([]float64, n)

	qTokens := lexical.QueryTokens(query, e.res)
	var lexScores []float64
	if snap.bm25 != nil && len(qTokens) > 0 {
		raw := snap.bm25.Scores(qTokens)
		maxRaw := 0.0
		for _, s := range raw {
			if s > maxRaw {
				maxRaw = s
			}
		}
		if maxRaw > 0 {
			lexScores = make([]float64, len(raw))
			for i, s := range raw {
				lexScores[i] = s / maxRaw
			}
		}
	}

	for i := 0; i < n; i++ {
		vec := float64(dot32(qvec, snap.vectors[i]))
		fused[i] = e.cfg.VectorWeight * vec
		if lexScores != nil {
			fused[i] += e.cfg.LexicalWeight * lexScores[i]
		}
	}
	return fused
}

// bonusScore sums metadata bonuses for query tokens found in the title
// and source path, plus the domain-concept bonus for curated terms
// appearing in the fragment's leading window. Capped so bonuses sharpen
// ranking without drowning relevance.
func (e *Engine) bonusScore(rec *types.ChunkRecord, qTokens []string) float64 {
	if len(qTokens) == 0 {
		return 0
	}
	title := strings.ToLower(rec.Title)
	src := strings.ToLower(rec.SourcePath)
	// The window counts characters, not bytes, so Hebrew text keeps its
	// full width.
	preview := rec.Text
	if runes := []rune(preview); len(runes) > e.cfg.PreviewChars {
		preview = string(runes[:e.cfg.PreviewChars])
	}
	preview = strings.ToLower(preview)

	score := 0.0
	for _, t := range qTokens {
		if strings.Contains(title, t) {
			score += e.cfg.TitleBonus
		}
		if strings.Contains(src, t) {
			score += e.cfg.PathBonus
		}
		if e.res.IsImportantConcept(t) && strings.Contains(preview, t) {
			score += e.cfg.ConceptBonus
		}
	}
	if score > e.cfg.BonusCap {
		score = e.cfg.BonusCap
	}
	return score
}

func matchesFilters(rec *types.ChunkRecord, filters map[string]string) bool {
	for name, want := range filters {
		got, _ := rec.FieldString(name)
		if !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}

func queryCacheKey(query string, topK int, filters map[string]string) [32]byte {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\x00%d", query, topK)
	for _, k := range keys {
		fmt.Fprintf(&b, "\x00%s=%s", k, filters[k])
	}
	return sha256.Sum256([]byte(b.String()))
}

func dot32(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func dot(a, b []float32) float64 {
	return float64(dot32(a, b))
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
