// Package lexical implements the keyword side of hybrid search: stopword
// and domain-term resources, the tokenizer shared by indexing and query
// processing, and a BM25 scorer built over the whole corpus.
package lexical
