package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sectionText builds n headed sections of wordsPer single-token words.
func sectionText(n, wordsPer int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "SECTION %d\n\n", i)
		for w := 0; w < wordsPer; w++ {
			fmt.Fprintf(&sb, "topic%dword%d ", i, w)
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func TestCleanText(t *testing.T) {
	in := "first-\nline\r\nsecond‏ line\n\n\n\nthird\tline"
	out := CleanText(in)

	assert.Equal(t, "firstline\nsecond line\n\nthird line", out)
}

func TestCleanTextEmpty(t *testing.T) {
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "", CleanText("   \n\n  "))
}

func TestIsHeading(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"SECTION 12:", true},
		{"Chapter 3", true},
		{"appendix 2)", true},
		{"סעיף 5", true},
		{"פרק 7", true},
		{"TERMS AND CONDITIONS", true},
		{"פרק 2.", false}, // terminal period disqualifies
		{"This sentence ends with a period.", false},
		{"plain lowercase line", false},
		{strings.Repeat("A", 130), false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsHeading(tc.line), "line=%q", tc.line)
	}
}

func TestIsBullet(t *testing.T) {
	assert.True(t, IsBullet("• first item"))
	assert.True(t, IsBullet("1. numbered item"))
	assert.True(t, IsBullet("(a) lettered item"))
	assert.True(t, IsBullet("א. hebrew item"))
	assert.False(t, IsBullet("not a bullet"))
}

func TestParagraphize(t *testing.T) {
	text := "SECTION 1\nfirst paragraph line one\nline two\n\nsecond paragraph\n• bullet item\ntail"
	blocks := Paragraphize(text, true, true)

	require.Len(t, blocks, 5)
	assert.Equal(t, "SECTION 1", blocks[0])
	assert.Equal(t, "first paragraph line one line two", blocks[1])
	assert.Equal(t, "second paragraph", blocks[2])
	assert.Equal(t, "• bullet item", blocks[3])
	assert.Equal(t, "tail", blocks[4])
}

func TestCosine(t *testing.T) {
	a := newBag([]string{"law", "contract", "law"})
	assert.InDelta(t, 1.0, cosine(a, a), 1e-9)
	assert.Equal(t, 0.0, cosine(a, bagOfWords{}))
	assert.Equal(t, 0.0, cosine(bagOfWords{}, a))

	b := newBag([]string{"entirely", "different"})
	assert.Equal(t, 0.0, cosine(a, b))
}

func TestChunkSimpleCharsReconstruction(t *testing.T) {
	var words []string
	for i := 0; i < 200; i++ {
		words = append(words, fmt.Sprintf("w%03d", i))
	}
	text := strings.Join(words, " ")
	collapsed := strings.Join(strings.Fields(text), " ")

	maxChars, overlap := 120, 30
	chunks := ChunkSimpleChars(text, maxChars, overlap)
	require.NotEmpty(t, chunks)

	// Merge consecutive chunks on their longest prefix/suffix overlap;
	// the result must reconstruct the collapsed input.
	rebuilt := chunks[0]
	for _, c := range chunks[1:] {
		assert.LessOrEqual(t, len([]rune(c)), maxChars)
		k := len(c)
		if k > len(rebuilt) {
			k = len(rebuilt)
		}
		for ; k > 0; k-- {
			if strings.HasSuffix(rebuilt, c[:k]) {
				break
			}
		}
		rebuilt += c[k:]
	}
	assert.Equal(t, collapsed, rebuilt)
}

func TestChunkSimpleCharsEmpty(t *testing.T) {
	assert.Nil(t, ChunkSimpleChars("", 400, 100))
	assert.Nil(t, ChunkSimpleChars("  \n ", 400, 100))
}

func TestChunkSmartWordsHeadedSections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinWords = 60
	cfg.MaxWords = 180

	text := sectionText(3, 80)
	chunks := ChunkSmartWords(text, cfg)

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.True(t, strings.HasPrefix(c, fmt.Sprintf("SECTION %d", i+1)),
			"chunk %d should start at its heading, got %q", i, c[:20])
	}
}

func TestChunkSmartWordsTinyTailMerged(t *testing.T) {
	cfg := DefaultConfig()

	// A tiny final section must be merged into the previous chunk instead
	// of surviving as a degenerate fragment.
	text := sectionText(1, 80) + "SECTION 2\n\nshort tail only"
	chunks := ChunkSmartWords(text, cfg)

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "short tail only")
}

func TestChunkSmartWordsOversizedBlock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinWords = 60
	cfg.MaxWords = 100

	// One giant unbroken paragraph: cohesion logic cannot help, so the
	// chunker must fall back to fixed word windows.
	var sb strings.Builder
	for i := 0; i < 450; i++ {
		fmt.Fprintf(&sb, "word%d ", i)
	}
	chunks := ChunkSmartWords(sb.String(), cfg)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(Words(c)), cfg.MaxWords)
	}
}

func TestChunkTextSimpleMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSimple

	text := strings.Repeat("alpha beta gamma ", 50)
	chunks := ChunkText(text, cfg)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars)
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	assert.Empty(t, ChunkText("", DefaultConfig()))
	assert.Empty(t, ChunkText("\n\n  \n", DefaultConfig()))
}

func TestChunkForEmbeddingCeiling(t *testing.T) {
	cfg := DefaultConfig()

	// Inflate character counts far past the ceiling within max_words so
	// the hard-split safety net has to fire.
	var sb strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&sb, "%s%d ", strings.Repeat("x", 30), i)
	}
	fragments := ChunkForEmbedding(sb.String(), cfg)

	require.NotEmpty(t, fragments)
	for _, f := range fragments {
		assert.LessOrEqual(t, len([]rune(f)), EmbedMaxChars)
		assert.NotEmpty(t, strings.TrimSpace(f))
	}
}

func TestChunkForEmbeddingEmpty(t *testing.T) {
	assert.Empty(t, ChunkForEmbedding("", DefaultConfig()))
}

func TestHardSplitNoSpaces(t *testing.T) {
	text := strings.Repeat("a", 5000)
	parts := HardSplit(text, 1500, 200)

	require.NotEmpty(t, parts)
	total := 0
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 1500)
		total += len(p)
	}
	assert.GreaterOrEqual(t, total, 5000)
}

func TestHardSplitShortInputUntouched(t *testing.T) {
	parts := HardSplit("short text", 1500, 200)
	require.Len(t, parts, 1)
	assert.Equal(t, "short text", parts[0])
}
