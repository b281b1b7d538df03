// Package types defines the shared data model for the lexkb corpus:
// persisted chunk records, ephemeral search results, and the domain
// errors used across the indexing and search pipelines.
package types
