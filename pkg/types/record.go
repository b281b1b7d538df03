package types

import (
	"fmt"
	"strings"
)

// ChunkRecord is one text fragment of the corpus, persisted as one JSON
// line of chunks.jsonl. Row order in the file defines the row index that
// aligns each record with the embedding matrix.
type ChunkRecord struct {
	ChunkID    string   `json:"chunk_id"`
	DocID      string   `json:"doc_id"`
	SourcePath string   `json:"source_path"`
	FolderTag  string   `json:"folder_tag"`
	ChunkIndex int      `json:"chunk_index"`
	LocalIndex int      `json:"local_index"`
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	LexTokens  []string `json:"lex_tokens"`
}

// MakeChunkID derives the stable chunk identifier. It depends only on the
// document identity and the fragment's position within the document, so
// path moves and global reordering never change it.
func MakeChunkID(docID string, localIndex int) string {
	return fmt.Sprintf("%s:%d", docID, localIndex)
}

// Validate checks the invariants every persisted record must hold.
func (r *ChunkRecord) Validate() error {
	if r.DocID == "" {
		return ErrMissingDocID
	}
	if r.LocalIndex < 0 {
		return ErrInvalidLocalIndex
	}
	if r.ChunkID != MakeChunkID(r.DocID, r.LocalIndex) {
		return ErrChunkIDMismatch
	}
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyChunkText
	}
	return nil
}

// FieldString returns the value of a filterable record field by its wire
// name. Only string-valued metadata fields participate in search filters.
func (r *ChunkRecord) FieldString(name string) (string, bool) {
	switch name {
	case "chunk_id":
		return r.ChunkID, true
	case "doc_id":
		return r.DocID, true
	case "source_path":
		return r.SourcePath, true
	case "folder_tag":
		return r.FolderTag, true
	case "title":
		return r.Title, true
	default:
		return "", false
	}
}

// SearchResult is one ranked hit, constructed per query and never persisted.
type SearchResult struct {
	Score      float64 `json:"score"`
	BaseScore  float64 `json:"base_score"`
	SourcePath string  `json:"source_path"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	DocID      string  `json:"doc_id"`
}
