package chunker

import (
	"math"
	"regexp"
	"strings"
)

// Mode selects the chunking strategy.
type Mode string

const (
	// ModeSimple is a fixed-width character window with overlap. Purely
	// positional; used as the fallback when structure is messy.
	ModeSimple Mode = "simple"
	// ModeSmart assembles structural blocks into word-bounded chunks with
	// cohesion-based splitting. Default, recommended for legal text.
	ModeSmart Mode = "smart"
)

// EmbedMaxChars is the embedding provider's hard per-fragment ceiling.
// ChunkForEmbedding guarantees no fragment ever exceeds it.
const EmbedMaxChars = 1500

// Config controls both chunking modes.
type Config struct {
	Mode Mode

	// simple mode
	MaxChars int
	Overlap  int

	// smart mode
	MinWords        int
	MaxWords        int
	BreakThreshold  float64 // 0 disables cohesion-based splitting
	RespectHeadings bool
	KeepBullets     bool

	// hard split applied by ChunkForEmbedding
	HardSplitOverlap int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Mode:             ModeSmart,
		MaxChars:         400,
		Overlap:          100,
		MinWords:         60,
		MaxWords:         180,
		BreakThreshold:   0.20,
		RespectHeadings:  true,
		KeepBullets:      true,
		HardSplitOverlap: 200,
	}
}

// Structure detection: numbered legal section markers (Hebrew and
// English), and short ALL-CAPS lines.
var (
	headingKeywordRe = regexp.MustCompile(`^((?:פרק|סעיף|נספח|כותרת)\s*\d+[.)]?|(?i:chapter|section|appendix)\s*\d+[.)]?)\s*[:\-–—]?\s*$`)
	headingCapsRe    = regexp.MustCompile(`^[A-Z][A-Z0-9 \-]{3,}\s*[:\-–—]?\s*$`)

	bulletRe = regexp.MustCompile(`^([•\-–—*]|\(?\d{1,3}\)?[.)]|\(?[א-ת]{1,3}\)?[.)]|\(?[a-zA-Z]{1,3}\)?[.)])\s+`)

	wordRe = regexp.MustCompile(`[A-Za-z0-9\x{0590}-\x{05FF}]+`)
)

// IsHeading reports whether a line looks like a section heading: short,
// no terminal period, matching a recognized heading pattern.
func IsHeading(line string) bool {
	if line == "" {
		return false
	}
	if len([]rune(line)) > 120 {
		return false
	}
	if strings.HasSuffix(line, ".") {
		return false
	}
	return headingKeywordRe.MatchString(line) || headingCapsRe.MatchString(line)
}

// IsBullet reports whether a line starts with a bullet or enumeration
// marker.
func IsBullet(line string) bool {
	return bulletRe.MatchString(line)
}

// Words lowercases the text and returns its word tokens (Latin, digits
// and Hebrew letters).
func Words(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// bagOfWords is an integer term-frequency multiset.
type bagOfWords map[string]int

func newBag(words []string) bagOfWords {
	b := make(bagOfWords, len(words))
	for _, w := range words {
		b[w]++
	}
	return b
}

func (b bagOfWords) add(other bagOfWords) {
	for k, v := range other {
		b[k] += v
	}
}

// cosine computes cosine similarity over raw term frequencies. Returns 0
// when either side is empty.
func cosine(a, b bagOfWords) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k, v := range a {
		if w, ok := b[k]; ok {
			dot += float64(v) * float64(w)
		}
		na += float64(v) * float64(v)
	}
	for _, v := range b {
		nb += float64(v) * float64(v)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Paragraphize converts raw text into logical blocks: headings and
// bullets become their own blocks, blank lines close the current one.
func Paragraphize(text string, respectHeadings, keepBullets bool) []string {
	text = CleanText(text)
	if text == "" {
		return nil
	}

	var blocks []string
	var buf []string

	flush := func() {
		if len(buf) > 0 {
			blocks = append(blocks, strings.TrimSpace(strings.Join(buf, " ")))
			buf = nil
		}
	}

	for _, ln := range strings.Split(text, "\n") {
		if ln == "" {
			flush()
			continue
		}
		if respectHeadings && IsHeading(ln) {
			flush()
			blocks = append(blocks, strings.TrimSpace(ln))
			continue
		}
		if keepBullets && IsBullet(ln) {
			flush()
			blocks = append(blocks, strings.TrimSpace(ln))
			continue
		}
		buf = append(buf, strings.TrimSpace(ln))
	}
	flush()

	out := blocks[:0]
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ChunkSimpleChars slides a fixed-width character window over the
// whitespace-collapsed text, advancing by maxChars-overlap each step.
func ChunkSimpleChars(text string, maxChars, overlap int) []string {
	collapsed := strings.Join(strings.Fields(CleanText(text)), " ")
	if collapsed == "" {
		return nil
	}

	if maxChars < 50 {
		maxChars = 50
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > maxChars-1 {
		overlap = maxChars - 1
	}

	runes := []rune(collapsed)
	n := len(runes)

	var out []string
	for i := 0; i < n; {
		end := i + maxChars
		if end > n {
			end = n
		}
		if chunk := strings.TrimSpace(string(runes[i:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end >= n {
			break
		}
		i = end - overlap
	}
	return out
}

// ChunkSmartWords assembles structural blocks into chunks bounded by word
// count, splitting before headings, on topic shifts, and at the word
// ceiling. A single oversized accumulation is hard-split into fixed word
// windows.
func ChunkSmartWords(text string, cfg Config) []string {
	blocks := Paragraphize(text, cfg.RespectHeadings, cfg.KeepBullets)
	if len(blocks) == 0 {
		return nil
	}

	minW := cfg.MinWords
	if minW < 20 {
		minW = 20
	}
	maxW := cfg.MaxWords
	if maxW < minW+20 {
		maxW = minW + 20
	}
	thr := cfg.BreakThreshold

	var chunks []string
	var curBlocks []string
	curWC := 0
	curBag := bagOfWords{}

	flush := func() {
		if len(curBlocks) > 0 {
			chunks = append(chunks, strings.TrimSpace(strings.Join(curBlocks, " ")))
		}
		curBlocks = nil
		curWC = 0
		curBag = bagOfWords{}
	}

	for _, b := range blocks {
		bWords := Words(b)
		bWC := len(bWords)
		bBag := newBag(bWords)

		// Split before a heading once the current chunk has enough content.
		if cfg.RespectHeadings && IsHeading(b) && curWC >= minW {
			flush()
		}

		// Topic-shift split: low cohesion between the accumulated chunk and
		// the incoming block.
		if thr > 0 && curWC >= minW && len(curBag) > 0 {
			if cosine(curBag, bBag) < thr {
				flush()
			}
		}

		// Word-ceiling split.
		if curWC > 0 && curWC+bWC > maxW {
			flush()
		}

		curBlocks = append(curBlocks, b)
		curWC += bWC
		curBag.add(bBag)

		// Pathological single huge block: abandon cohesion and cut into
		// fixed word windows.
		if float64(curWC) > float64(maxW)*1.5 {
			big := strings.TrimSpace(strings.Join(curBlocks, " "))
			ws := Words(big)
			curBlocks = nil
			curWC = 0
			curBag = bagOfWords{}
			for i := 0; i < len(ws); i += maxW {
				end := i + maxW
				if end > len(ws) {
					end = len(ws)
				}
				if part := strings.TrimSpace(strings.Join(ws[i:end], " ")); part != "" {
					chunks = append(chunks, part)
				}
			}
		}
	}
	flush()

	// Merge degenerate tiny chunks into their predecessor.
	tiny := minW / 5
	if tiny < 12 {
		tiny = 12
	}
	var cleaned []string
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if len(cleaned) > 0 && len(Words(c)) < tiny {
			cleaned[len(cleaned)-1] = strings.TrimSpace(cleaned[len(cleaned)-1] + " " + c)
		} else {
			cleaned = append(cleaned, c)
		}
	}
	return cleaned
}

// ChunkText is the mode dispatcher. Smart mode falls back to simple mode
// when it yields nothing.
func ChunkText(text string, cfg Config) []string {
	if cfg.Mode == ModeSimple {
		return ChunkSimpleChars(text, cfg.MaxChars, cfg.Overlap)
	}
	if out := ChunkSmartWords(text, cfg); len(out) > 0 {
		return out
	}
	return ChunkSimpleChars(text, cfg.MaxChars, cfg.Overlap)
}

// ChunkForEmbedding runs the configured chunking and then enforces the
// embedding ceiling, re-splitting any oversized fragment. Every returned
// fragment is guaranteed to be at most EmbedMaxChars characters.
func ChunkForEmbedding(text string, cfg Config) []string {
	base := ChunkText(text, cfg)

	var final []string
	for _, c := range base {
		if len([]rune(c)) <= EmbedMaxChars {
			final = append(final, c)
			continue
		}
		final = append(final, HardSplit(c, EmbedMaxChars, cfg.HardSplitOverlap)...)
	}
	return final
}

// HardSplit cuts text into pieces of at most maxChars characters,
// preferring to break at the last newline or space past 70% of the
// window, with overlap between consecutive pieces.
func HardSplit(text string, maxChars, overlap int) []string {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	if maxChars < 200 {
		maxChars = 200
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(t)
	n := len(runes)
	if n <= maxChars {
		return []string{t}
	}

	var parts []string
	start := 0
	for start < n {
		end := start + maxChars
		if end > n {
			end = n
		}

		cut := end
		if end < n {
			window := runes[start:end]
			best := -1
			for i := len(window) - 1; i >= 0; i-- {
				if window[i] == '\n' || window[i] == ' ' {
					best = i
					break
				}
			}
			if best > int(0.7*float64(len(window))) {
				cut = start + best
			}
		}

		if piece := strings.TrimSpace(string(runes[start:cut])); piece != "" {
			parts = append(parts, piece)
		}
		if cut >= n {
			break
		}

		next := cut - overlap
		if next <= start {
			next = cut
			if next <= start {
				next = start + 1
			}
		}
		start = next
	}
	return parts
}
