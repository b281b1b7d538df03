// Package storage reads and writes the two on-disk index artifacts: the
// chunk-record stream (chunks.jsonl, one JSON object per line, the
// authoritative source of chunk content) and the embedding matrix
// (embeddings.f32, a flat little-endian float32 array row-aligned to the
// chunk stream). The two artifacts are produced by independent steps and
// carry no transaction between them; load-time row reconciliation
// truncates both to the common prefix instead of failing.
package storage
