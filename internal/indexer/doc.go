// Package indexer orchestrates the two corpus-building jobs.
//
// Reindex walks the source tree, reuses chunk records from the previous
// run when a document's identity is unchanged (stable id first, legacy
// id as a migration path), extracts and chunks everything else, and
// streams the new chunk file in enumeration order. Embed turns the
// chunk stream into the row-aligned embedding matrix, reusing prior
// vectors for chunks whose text and model are unchanged.
//
// Both jobs publish progress through an atomically written JSON status
// artifact that a concurrent poller can read at any time.
package indexer
