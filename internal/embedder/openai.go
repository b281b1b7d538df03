package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Provider names and defaults.
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultOpenAIModel = "text-embedding-3-large"
	DefaultDimension   = 3072

	defaultOpenAIBase = "https://api.openai.com/v1"

	// Sub-batch size for one API call.
	DefaultBatchSize = 100
)

// OpenAIProvider implements Embedder using the OpenAI embeddings API.
// It always sends the dimensions parameter so the stored matrix keeps a
// fixed width.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewOpenAIProvider creates an OpenAI embedder. An empty apiKey falls
// back to OPENAI_API_KEY; empty model and dimension fall back to the
// defaults.
func NewOpenAIProvider(apiKey, model string, dimension int, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	baseURL := os.Getenv(EnvOpenAIBase)
	if baseURL == "" {
		baseURL = defaultOpenAIBase
	}

	return &OpenAIProvider{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		cache: cache,
	}, nil
}

func (o *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))

	// Serve cache hits first; collect the misses per sub-batch.
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if o.cache != nil {
			if v, ok := o.cache.Get(ComputeHash(o.model, text)); ok {
				out[i] = v
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	for start := 0; start < len(missTexts); start += DefaultBatchSize {
		end := start + DefaultBatchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		batch := missTexts[start:end]

		config := DefaultRetryConfig()
		vecs, err := retryWithBackoff(ctx, config, func() ([][]float32, error) {
			return o.callAPI(ctx, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrProviderFailed, len(vecs), len(batch))
		}

		for j, v := range vecs {
			i := missIdx[start+j]
			out[i] = v
			if o.cache != nil {
				o.cache.Set(ComputeHash(o.model, texts[i]), v)
			}
		}
	}

	return out, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input":      texts,
		"model":      o.model,
		"dimensions": o.dimension,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vecs := make([][]float32, len(apiResp.Data))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(vecs) {
			return nil, fmt.Errorf("api returned index %d out of range", data.Index)
		}
		vecs[data.Index] = data.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("api returned no vector for input %d", i)
		}
	}

	return vecs, nil
}

func (o *OpenAIProvider) Dimension() int {
	return o.dimension
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
