package types

import "errors"

// Domain errors for record validation
var (
	ErrMissingDocID      = errors.New("doc ID is required")
	ErrInvalidLocalIndex = errors.New("local index must be >= 0")
	ErrChunkIDMismatch   = errors.New("chunk ID does not match doc_id:local_index")
	ErrEmptyChunkText    = errors.New("chunk text cannot be empty")
)
