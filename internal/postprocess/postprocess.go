// Package postprocess strips the wrapping chat models put around a
// translated chunk: reasoning blocks, "Here is the translation:" preambles,
// outer quotes and a fence around the whole reply.
//
// Every rule compares against the source chunk and stands down when the
// source has the same shape, so a page that documents <think> tags or
// opens with a quotation comes back intact.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean returns reply without model artifacts, trimmed. source is the text
// the model was asked to translate (or, for a refinement pass, the draft).
func Clean(reply, source string) string {
	out := reply
	if !reasoningTagRe.MatchString(source) {
		out = stripReasoning(out)
	}
	out = stripPreamble(strings.TrimSpace(out), strings.TrimSpace(source))
	out = unwrapQuotes(out, strings.TrimSpace(source))
	out = unwrapFence(out, source)
	return strings.TrimSpace(out)
}

// RE2 has no backreferences, so each tag pair is spelled out.
var (
	reasoningBlockRe = regexp.MustCompile(
		`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
	)
	// An opened block with no closing tag: the model was cut off mid-thought.
	openReasoningRe = regexp.MustCompile(`(?is)<(?:thinking|think|reasoning|reflection)>.*$`)
	reasoningTagRe  = regexp.MustCompile(`(?i)</?(?:thinking|think|reasoning|reflection)>`)
)

func stripReasoning(text string) string {
	text = reasoningBlockRe.ReplaceAllString(text, "")
	return openReasoningRe.ReplaceAllString(text, "")
}

// preambleRes are anchored at the start and need a trailing colon, which
// keeps ordinary first sentences out of reach.
var preambleRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]?\s+`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| your)? (?:refined |polished |translated |revised )?(?:translation|text|version)(?: in [a-z]+)?\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:refined |polished |revised )?(?:translation|translated text)(?: in [a-z]+)?\s*:`),
}

func stripPreamble(text, source string) string {
	for _, re := range preambleRes {
		if re.MatchString(source) {
			continue
		}
		if loc := re.FindStringIndex(text); loc != nil {
			rest := strings.TrimSpace(text[loc[1]:])
			// A bare "Sure," is only dropped when a real preamble follows.
			if re == preambleRes[0] && !hasPreamble(rest) {
				continue
			}
			text = rest
		}
	}
	return text
}

func hasPreamble(text string) bool {
	return preambleRes[1].MatchString(text) || preambleRes[2].MatchString(text)
}

var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'«':  '»',
	'“':  '”',
	'‘':  '’',
	'„':  '“',
}

// unwrapQuotes drops one pair of quotes around the whole reply unless the
// source opened with the same quote.
func unwrapQuotes(text, source string) string {
	runes := []rune(text)
	if len(runes) < 2 {
		return text
	}
	closing, ok := quotePairs[runes[0]]
	if !ok || runes[len(runes)-1] != closing {
		return text
	}
	if src := []rune(source); len(src) > 0 && src[0] == runes[0] {
		return text
	}
	inner := string(runes[1 : len(runes)-1])
	// "a" and "b" is two quotations, not one wrapped reply.
	if strings.ContainsRune(inner, runes[0]) || strings.ContainsRune(inner, closing) {
		return text
	}
	return strings.TrimSpace(inner)
}

var wrappingFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*[ \t]*\r?\n(.*?)\r?\n?```$")

// unwrapFence removes a code fence around the whole reply
// ("```markdown ... ```") unless the source chunk itself opened with one.
func unwrapFence(text, source string) string {
	if strings.HasPrefix(strings.TrimSpace(source), "```") {
		return text
	}
	trimmed := strings.TrimSpace(text)
	if m := wrappingFenceRe.FindStringSubmatch(trimmed); m != nil && !strings.Contains(m[1], "```") {
		return m[1]
	}
	return text
}
