package lexical

import (
	"regexp"
	"strings"
)

// DefaultMaxLexTokens caps how many tokens are persisted per chunk.
const DefaultMaxLexTokens = 80

var (
	emailRe   = regexp.MustCompile(`(?i)\b[\w.\-+]+@[\w.\-]+\.\w+\b`)
	urlRe     = regexp.MustCompile(`(?i)\bhttps?://\S+\b|\bwww\.\S+\b`)
	nonWordRe = regexp.MustCompile(`[^\w\x{0590}-\x{05FF}]+`)
	digitsRe  = regexp.MustCompile(`^\d+$`)
)

// QueryTokens tokenizes a search query: lowercase, strip emails and URLs,
// keep word characters plus Hebrew letters, drop tokens shorter than two
// characters and stopwords. Order and duplicates are preserved.
func QueryTokens(query string, res Resources) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	q = emailRe.ReplaceAllString(q, " ")
	q = urlRe.ReplaceAllString(q, " ")
	q = nonWordRe.ReplaceAllString(q, " ")

	var out []string
	for _, tok := range strings.Fields(q) {
		if len([]rune(tok)) < 2 {
			continue
		}
		if res.IsStopword(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// LexTokens derives the ordered, deduplicated token set persisted on a
// chunk record for lexical indexing. On top of the query rules it drops
// short bare numbers and caps the result at maxTokens (DefaultMaxLexTokens
// when <= 0).
func LexTokens(text string, res Resources, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxLexTokens
	}

	raw := QueryTokens(text, res)
	if len(raw) == 0 {
		return nil
	}

	out := make([]string, 0, maxTokens)
	seen := make(map[string]struct{}, len(raw))
	for _, tok := range raw {
		if digitsRe.MatchString(tok) && len(tok) < 3 {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) >= maxTokens {
			break
		}
	}
	return out
}
