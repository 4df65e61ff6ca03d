// Package placeholder shields parts of a chunk from the translator. Markup
// (code, link targets, tags, reST roles) and glossary terms are swapped for
// numbered markers such as [PH0] or [GL0] and put back afterwards.
package placeholder

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Protection patterns, applied in order. Earlier patterns win because their
// matches are gone before later ones run. When a pattern has a capture
// group only the group is protected.
var markupPatterns = []*regexp.Regexp{
	// marker-shaped text already in the source
	regexp.MustCompile(`\[(?:PH|GL)\d+\]`),
	// fenced code, possibly spanning lines
	regexp.MustCompile("(?s)```.*?```"),
	// reST roles: :ref:`target`, :py:func:`name`
	regexp.MustCompile(":[a-z][a-z0-9:+-]*:`[^`]+`"),
	// inline code, including reST ``literals``
	regexp.MustCompile("``[^`]+``|`[^`]+`"),
	// markdown link and image targets: (url) or (url "title") after ]
	regexp.MustCompile(`\](\([^)\s]+(?:\s+"[^"]*")?\))`),
	// HTML and JSX tags
	regexp.MustCompile(`<[^<>\n]+>`),
}

var markerRe = regexp.MustCompile(`\[(PH|GL)(\d+)\]`)

// Markers records what was taken out of a text. A nil *Markers is empty.
type Markers struct {
	prefix    string
	originals []string
	// replacement is what Restore puts back; originals for markup, target
	// terms for the glossary.
	replacement []string
}

func (m *Markers) Len() int {
	if m == nil {
		return 0
	}
	return len(m.originals)
}

// Token returns the marker text of entry i ("[PH3]").
func (m *Markers) Token(i int) string {
	return "[" + m.prefix + strconv.Itoa(i) + "]"
}

// Originals returns the protected source fragments in marker order.
func (m *Markers) Originals() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.originals...)
}

// Missing lists the markers absent from text.
func (m *Markers) Missing(text string) []string {
	var missing []string
	for i := 0; i < m.Len(); i++ {
		if tok := m.Token(i); !strings.Contains(text, tok) {
			missing = append(missing, tok)
		}
	}
	return missing
}

// Restore puts the recorded fragments back. Markers of another kind, and
// indices this set never issued, are left alone.
func (m *Markers) Restore(text string) string {
	if m.Len() == 0 {
		return text
	}
	return markerRe.ReplaceAllStringFunc(text, func(tok string) string {
		sub := markerRe.FindStringSubmatch(tok)
		idx, err := strconv.Atoi(sub[2])
		if sub[1] != m.prefix || err != nil || idx >= len(m.replacement) {
			return tok
		}
		return m.replacement[idx]
	})
}

func (m *Markers) add(original, replacement string) string {
	m.originals = append(m.originals, original)
	m.replacement = append(m.replacement, replacement)
	return m.Token(len(m.originals) - 1)
}

// Protect replaces markup in text with [PHn] markers in order of discovery.
func Protect(text string) (string, *Markers) {
	m := &Markers{prefix: "PH"}
	for _, re := range markupPatterns {
		text = replaceMatches(re, text, func(s string) string {
			return m.add(s, s)
		})
	}
	return text, m
}

func replaceMatches(re *regexp.Regexp, text string, fn func(string) string) string {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return text
	}
	var sb strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		sb.WriteString(text[last:start])
		sb.WriteString(fn(text[start:end]))
		last = end
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// ProtectTerms replaces glossary source terms with [GLn] markers that
// restore to the target terms. Longer terms match first so "notebook cell"
// beats "notebook"; repeated terms share one marker.
func ProtectTerms(text string, terms map[string]string) (string, *Markers) {
	m := &Markers{prefix: "GL"}
	sources := make([]string, 0, len(terms))
	for src := range terms {
		if src != "" {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return text, m
	}
	sort.Slice(sources, func(i, j int) bool {
		if len(sources[i]) != len(sources[j]) {
			return len(sources[i]) > len(sources[j])
		}
		return sources[i] < sources[j]
	})
	for i, src := range sources {
		sources[i] = regexp.QuoteMeta(src)
	}
	// Existing markers are matched first so a term never splits one.
	re := regexp.MustCompile(markerRe.String() + "|" + strings.Join(sources, "|"))

	issued := make(map[string]string)
	text = re.ReplaceAllStringFunc(text, func(match string) string {
		if markerRe.MatchString(match) {
			return match
		}
		if tok, ok := issued[match]; ok {
			return tok
		}
		tok := m.add(match, terms[match])
		issued[match] = tok
		return tok
	})
	return text, m
}

// InstructionHint tells a model to leave [PHn] markers alone.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as written: do not translate, move, merge or drop them."
}
