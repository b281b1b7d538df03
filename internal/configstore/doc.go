// Package configstore persists runtime-tunable settings and curated term
// lists (extra stopwords, domain concepts) in a local SQLite database.
// The index artifacts on disk stay the source of truth for corpus data;
// the store only holds knobs an operator changes between runs without
// editing the YAML config.
package configstore
