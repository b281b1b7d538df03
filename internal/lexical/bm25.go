package lexical

import "math"

// BM25 parameters, matching the Okapi variant used by the embedding
// pipeline's reference scorer.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// BM25 is an Okapi BM25 scorer over a fixed tokenized corpus. Documents
// are addressed by their position in the corpus, which for chunk records
// equals the row index of the chunk stream.
type BM25 struct {
	docFreqs []map[string]int
	docLens  []int
	idf      map[string]float64
	avgdl    float64
}

// NewBM25 builds the scorer over the whole corpus. An empty corpus yields
// a scorer whose Scores are all empty.
func NewBM25(corpus [][]string) *BM25 {
	b := &BM25{
		docFreqs: make([]map[string]int, len(corpus)),
		docLens:  make([]int, len(corpus)),
		idf:      make(map[string]float64),
	}
	if len(corpus) == 0 {
		return b
	}

	df := make(map[string]int)
	total := 0
	for i, doc := range corpus {
		freqs := make(map[string]int, len(doc))
		for _, tok := range doc {
			freqs[tok]++
		}
		b.docFreqs[i] = freqs
		b.docLens[i] = len(doc)
		total += len(doc)
		for tok := range freqs {
			df[tok]++
		}
	}
	b.avgdl = float64(total) / float64(len(corpus))

	// Okapi IDF with the negative-value floor: rare terms get
	// ln((N-df+0.5)/(df+0.5)); terms in most documents would go negative
	// and are clamped to epsilon * average IDF instead.
	n := float64(len(corpus))
	var idfSum float64
	var negative []string
	for tok, f := range df {
		idf := math.Log((n - float64(f) + 0.5) / (float64(f) + 0.5))
		b.idf[tok] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, tok)
		}
	}
	avgIDF := idfSum / float64(len(b.idf))
	floor := bm25Epsilon * avgIDF
	for _, tok := range negative {
		b.idf[tok] = floor
	}

	return b
}

// Size returns the number of documents in the corpus.
func (b *BM25) Size() int {
	return len(b.docFreqs)
}

// Scores returns one raw BM25 score per corpus document for the query
// tokens. Raw scores are unbounded; callers normalize by the batch
// maximum when fusing with vector scores.
func (b *BM25) Scores(query []string) []float64 {
	scores := make([]float64, len(b.docFreqs))
	if len(query) == 0 || len(b.docFreqs) == 0 {
		return scores
	}

	for i, freqs := range b.docFreqs {
		dl := float64(b.docLens[i])
		var s float64
		for _, tok := range query {
			f := float64(freqs[tok])
			if f == 0 {
				continue
			}
			idf := b.idf[tok]
			s += idf * f * (bm25K1 + 1) / (f + bm25K1*(1-bm25B+bm25B*dl/b.avgdl))
		}
		scores[i] = s
	}
	return scores
}
