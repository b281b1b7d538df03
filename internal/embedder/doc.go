// Package embedder turns chunk and query text into dense vectors.
//
// The OpenAI provider is the production path; it requests a fixed
// dimension so the on-disk matrix stays compatible across model
// revisions that support dimension reduction. The local provider is a
// deterministic stand-in for tests and offline runs. All providers
// share an LRU cache keyed by content hash and retry transient API
// failures with exponential backoff.
package embedder

// Environment variables consulted by the factory.
const (
	EnvProvider     = "LEXKB_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvOpenAIBase   = "OPENAI_BASE_URL"
)
