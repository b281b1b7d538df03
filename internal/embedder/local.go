package embedder

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// LocalDimension keeps local vectors small and fast.
const LocalDimension = 384

// LocalProvider produces deterministic hash-derived vectors. It exists
// for tests and offline smoke runs; similarity scores from it carry no
// semantic meaning.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a local embedder.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: "local-hash",
		cache: cache,
	}, nil
}

func (l *LocalProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	hash := ComputeHash(l.model, text)
	if l.cache != nil {
		if v, ok := l.cache.Get(hash); ok {
			return v, nil
		}
	}

	// Stretch the text hash over the vector by rehashing with a counter.
	vector := make([]float32, LocalDimension)
	seed := []byte(text)
	pos := 0
	for ctr := 0; pos < LocalDimension; ctr++ {
		block := sha256.Sum256(append(seed, byte(ctr)))
		for _, b := range block {
			if pos >= LocalDimension {
				break
			}
			vector[pos] = float32(b)/127.5 - 1.0
			pos++
		}
	}
	vector = NormalizeVector(vector)

	if l.cache != nil {
		l.cache.Set(hash, vector)
	}
	return vector, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := l.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
