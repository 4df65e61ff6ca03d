package translator

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/valpere/peredoc/internal/placeholder"
)

// BuildPrompt renders the fixed translation template for req. The chunk is
// the user message; instructions, glossary and continuity context go into
// the system message.
func BuildPrompt(req TranslateRequest, protected bool) Prompt {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a professional translator. Translate the following text from %s to %s.\n",
		languageName(req.SourceLang), languageName(req.TargetLang))
	sb.WriteString("Keep all links, code blocks, images, and special tags unchanged. Only translate the actual text content.\n")
	sb.WriteString("Keep the document structure: headings, lists, tables, blank lines and indentation.\n")
	sb.WriteString("Only respond with the translation, nothing else. No explanations, no quotes, just the translation.")

	if protected {
		sb.WriteString(" ")
		sb.WriteString(placeholder.InstructionHint())
	}
	if req.Instructions != "" {
		sb.WriteString(" ")
		sb.WriteString(req.Instructions)
	}

	if len(req.GlossaryTerms) > 0 {
		sources := make([]string, 0, len(req.GlossaryTerms))
		for src := range req.GlossaryTerms {
			sources = append(sources, src)
		}
		sort.Strings(sources)

		sb.WriteString("\n\nTERMINOLOGY (if any of these terms appear, use the specific translations provided):\n")
		for _, src := range sources {
			fmt.Fprintf(&sb, "  %s → %s\n", src, req.GlossaryTerms[src])
		}
	}

	if req.PreviousContext != "" {
		fmt.Fprintf(&sb, "\n\nCONTEXT (end of the previous passage, for continuity only; do NOT translate or repeat it):\n...%s", req.PreviousContext)
	}

	return Prompt{System: sb.String(), User: req.Text}
}

// languageName spells out a language code for the prompt ("ar" → "Arabic").
// Unknown codes are used as given.
func languageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "auto") {
		return "the detected language"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
