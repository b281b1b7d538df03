package chunker

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	hyphenBreakRe = regexp.MustCompile(`(\pL)-\n(\pL)`)
	multiSpaceRe  = regexp.MustCompile(`[ \t]+`)
	multiBlankRe  = regexp.MustCompile(`\n{3,}`)
)

// isBidiOrZeroWidth reports whether r is a bidi control or zero-width
// character. These break Hebrew text matching and must be stripped before
// any structural analysis.
func isBidiOrZeroWidth(r rune) bool {
	switch {
	case r == '\u200e' || r == '\u200f': // LRM / RLM
		return true
	case r >= '\u202a' && r <= '\u202e': // embedding / override controls
		return true
	case r >= '\u2066' && r <= '\u2069': // isolate controls
		return true
	case r >= '\u200b' && r <= '\u200d': // zero-width space / joiners
		return true
	case r == '\ufeff': // BOM
		return true
	}
	return false
}

// CleanText is the unified cleanup applied to extracted text before
// chunking: NFKC normalization, bidi/zero-width removal, newline
// normalization, hyphenation repair and whitespace collapsing.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)

	text = strings.Map(func(r rune) rune {
		if isBidiOrZeroWidth(r) {
			return -1
		}
		return r
	}, text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	// Rejoin words broken across lines by hyphenation ("word-\nword").
	text = hyphenBreakRe.ReplaceAllString(text, "$1$2")

	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
