// Package searcher answers queries over the loaded index snapshot.
//
// The engine holds an immutable snapshot (chunk records, unit-normalized
// embedding matrix, BM25 index) behind an atomic pointer. Staleness is
// checked lazily against the artifacts' modification time; a reload
// builds a fresh snapshot and publishes it with one pointer swap, so
// concurrent queries always observe a fully built index. Concurrent
// reload attempts are deduplicated with singleflight.
//
// Query-side failures degrade to an empty result list and never
// propagate as errors: a missing index, a corrupt artifact, or an
// embedding-provider failure all read as "no results".
package searcher
