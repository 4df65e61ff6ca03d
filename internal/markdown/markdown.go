// Package markdown renders Markdown prose to plain text for language
// detection.
package markdown

import (
	"html"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

func ToHTML(md []byte) string {
	opts := mdhtml.RendererOptions{
		Flags: mdhtml.FlagsNone,
	}
	renderer := mdhtml.NewRenderer(opts)
	// A fresh parser per call: gomarkdown parsers are not reusable.
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Attributes)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

// ToPlainText renders md and drops the markup, code blocks included.
func ToPlainText(md []byte) string {
	htmlContent := dropCodeBlocks(ToHTML(md))
	return html.UnescapeString(StripHTMLTags(htmlContent))
}

func StripHTMLTags(htmlContent string) string {
	var result strings.Builder
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(ch)
			}
		}
	}

	return result.String()
}

// dropCodeBlocks removes rendered <pre> blocks; code is not prose.
func dropCodeBlocks(s string) string {
	for {
		start := strings.Index(s, "<pre>")
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], "</pre>")
		if end < 0 {
			return s[:start]
		}
		s = s[:start] + s[start+end+len("</pre>"):]
	}
}
