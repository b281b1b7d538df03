// Package chunker turns cleaned plain text into ordered fragments sized
// for embedding. It offers two modes: a positional sliding-window mode
// ("simple") used as a robustness fallback, and a structure-aware mode
// ("smart") that segments on headings, bullets and blank lines and splits
// on topic shifts measured by bag-of-words cosine similarity.
//
// ChunkForEmbedding is the single authority for "text -> embeddable
// fragments": it applies the configured mode and then enforces the
// embedding provider's hard character ceiling. Both the indexer and the
// ad-hoc session-file path must go through it so index-time and
// query-time chunking stay identical.
package chunker
