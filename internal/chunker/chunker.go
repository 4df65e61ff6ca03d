// Package chunker splits extracted prose into bounded, non-overlapping
// chunks for translation. Each chunk remembers the exact separator text that
// followed it in the source, so Join rebuilds the original byte-for-byte when
// every chunk is passed through unchanged.
//
// It also extracts a sliding-window context snippet (last N words) that the
// translator receives as read-only context for the next chunk.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultContextWords is the default number of words extracted by
	// ExtractContext for use as a sliding-window context.
	DefaultContextWords = 25

	// DefaultMaxChars is the default chunk bound in unicode code points.
	DefaultMaxChars = 8292
)

// Chunk is one contiguous slice of the source prose.
type Chunk struct {
	Text string
	// Sep is the whitespace that followed Text in the source. It is never
	// sent for translation.
	Sep string
}

var (
	// paragraphSep matches a blank-line run between paragraphs.
	paragraphSep = regexp.MustCompile(`\r?\n(?:[ \t]*\r?\n)+`)

	// codeFence matches fenced code blocks; blank lines inside them are not
	// paragraph boundaries.
	codeFence = regexp.MustCompile("(?s)```.*?```|~~~.*?~~~")
)

type paragraph struct {
	text   string
	sep    string
	atomic bool
}

// Split breaks text into chunks of at most maxChars code points.
// Boundaries are tried in order of preference:
//  1. Paragraph boundaries (blank lines outside fenced code blocks)
//  2. Line breaks
//  3. Sentence-ending punctuation (. ! ?)
//  4. Whitespace (word boundary)
//  5. Hard cut at maxChars
//
// A paragraph that contains a fenced code block is indivisible and becomes
// its own chunk when it exceeds maxChars. Whitespace-only text yields no
// chunks. If maxChars ≤ 0 it is treated as unlimited.
func Split(text string, maxChars int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []Chunk{{Text: text}}
	}

	var (
		chunks []Chunk
		cur    strings.Builder
		curLen int
		curSep string
		open   bool
	)
	flush := func() {
		if !open {
			return
		}
		chunks = append(chunks, Chunk{Text: cur.String(), Sep: curSep})
		cur.Reset()
		curLen, curSep, open = 0, "", false
	}

	for _, p := range splitParagraphs(text) {
		pl := utf8.RuneCountInString(p.text)
		if pl > maxChars {
			flush()
			if p.atomic {
				chunks = append(chunks, Chunk{Text: p.text, Sep: p.sep})
			} else {
				chunks = append(chunks, hardSplit(p.text, p.sep, maxChars)...)
			}
			continue
		}
		sepLen := utf8.RuneCountInString(curSep)
		if open && curLen+sepLen+pl > maxChars {
			flush()
			sepLen = 0
		}
		if open {
			cur.WriteString(curSep)
			curLen += sepLen
		}
		cur.WriteString(p.text)
		curLen += pl
		curSep = p.sep
		open = true
	}
	flush()

	return chunks
}

// Texts returns the chunk texts in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// Join reassembles translated chunk texts, re-inserting each chunk's
// original separator. translated must be index-aligned with chunks.
func Join(chunks []Chunk, translated []string) (string, error) {
	if len(chunks) != len(translated) {
		return "", fmt.Errorf("chunk count mismatch: %d chunks, %d translations", len(chunks), len(translated))
	}
	var sb strings.Builder
	for i, c := range chunks {
		sb.WriteString(translated[i])
		sb.WriteString(c.Sep)
	}
	return sb.String(), nil
}

// splitParagraphs cuts text on blank-line runs outside code fences.
// Whitespace-only pieces are folded into the neighbouring separators so no
// paragraph is empty.
func splitParagraphs(text string) []paragraph {
	fences := codeFence.FindAllStringIndex(text, -1)

	var raw []paragraph
	start := 0
	for _, loc := range paragraphSep.FindAllStringIndex(text, -1) {
		if insideRanges(loc[0], fences) {
			continue
		}
		raw = append(raw, paragraph{text: text[start:loc[0]], sep: text[loc[0]:loc[1]]})
		start = loc[1]
	}
	raw = append(raw, paragraph{text: text[start:]})

	var out []paragraph
	lead := ""
	for _, p := range raw {
		if strings.TrimSpace(p.text) == "" {
			if len(out) == 0 {
				lead += p.text + p.sep
			} else {
				out[len(out)-1].sep += p.text + p.sep
			}
			continue
		}
		p.text = lead + p.text
		lead = ""
		p.atomic = codeFence.MatchString(p.text)
		out = append(out, p)
	}
	return out
}

func insideRanges(pos int, ranges [][]int) bool {
	for _, r := range ranges {
		if pos > r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// hardSplit cuts a single oversized paragraph. Leading indentation stays
// attached to the first fragment and counts against its size; the
// whitespace at each cut becomes the fragment's separator and tail follows
// the last fragment.
func hardSplit(text, tail string, maxChars int) []Chunk {
	body := strings.TrimLeftFunc(text, unicode.IsSpace)
	lead := text[:len(text)-len(body)]

	limit := max(maxChars-utf8.RuneCountInString(lead), 1)
	var out []Chunk
	remaining := body
	for utf8.RuneCountInString(remaining) > limit {
		split := findSplit(remaining, limit)
		head := strings.TrimRightFunc(remaining[:split], unicode.IsSpace)
		rest := strings.TrimLeftFunc(remaining[split:], unicode.IsSpace)
		sep := remaining[len(head) : len(remaining)-len(rest)]
		out = append(out, Chunk{Text: head, Sep: sep})
		remaining = rest
		limit = maxChars
	}
	if remaining != "" {
		out = append(out, Chunk{Text: remaining, Sep: tail})
	} else {
		out[len(out)-1].Sep += tail
	}
	out[0].Text = lead + out[0].Text
	return out
}

// findSplit returns the byte index within text at which to split, aiming for
// at most maxChars runes. text must not start with whitespace, which keeps
// every boundary candidate past index 0.
func findSplit(text string, maxChars int) int {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return len(text)
	}
	candidate := string(runes[:maxChars])
	cr := runes[:maxChars]

	// Line break.
	if idx := strings.LastIndex(candidate, "\n"); idx > 0 {
		return idx
	}

	// Sentence-ending punctuation followed by whitespace.
	for i := len(cr) - 2; i > 0; i-- {
		if (cr[i] == '.' || cr[i] == '!' || cr[i] == '?') && unicode.IsSpace(cr[i+1]) {
			return len(string(cr[:i+1]))
		}
	}

	// Whitespace word boundary.
	for i := len(cr) - 1; i > 0; i-- {
		if unicode.IsSpace(cr[i]) {
			return len(string(cr[:i]))
		}
	}

	// Hard cut.
	return len(candidate)
}

// ExtractContext returns the last wordCount words of text, joined by a single
// space. It is intended for use as a sliding-window context snippet passed to
// LLM translators so they can maintain continuity across chunks.
// If text has fewer words than wordCount, the entire text is returned.
// If wordCount ≤ 0, DefaultContextWords is used.
func ExtractContext(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultContextWords
	}
	words := strings.Fields(text)
	if len(words) <= wordCount {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[len(words)-wordCount:], " ")
}
