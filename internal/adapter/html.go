package adapter

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"

	"github.com/valpere/peredoc/internal/document"
)

// htmlAdapter renders the readable body of an HTML page to plain text.
// Markup is discarded on extraction and not restored: the output file holds
// the translated text only.
type htmlAdapter struct{}

func NewHTML() Adapter { return htmlAdapter{} }

func (htmlAdapter) Format() document.Format { return document.FormatHTML }

func (htmlAdapter) Extract(doc document.Document) (document.ExtractedUnit, error) {
	pageURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(doc.Path)}

	article, err := readability.FromReader(bytes.NewReader(doc.Bytes()), pageURL)
	if err != nil {
		return document.ExtractedUnit{}, &document.ExtractionError{
			Format: document.FormatHTML,
			Err:    fmt.Errorf("readability parse: %w", err),
		}
	}

	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		return document.ExtractedUnit{}, &document.ExtractionError{
			Format: document.FormatHTML,
			Err:    fmt.Errorf("render readability text: %w", err),
		}
	}

	text := CleanText(rendered.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	if text == "" {
		return document.ExtractedUnit{}, &document.ExtractionError{
			Format: document.FormatHTML,
			Err:    errors.New("no readable content"),
		}
	}

	return document.ExtractedUnit{
		Path:   doc.Path,
		Format: document.FormatHTML,
		Prose:  text,
	}, nil
}

func (htmlAdapter) Reconstruct(prose string, unit document.ExtractedUnit) (document.Document, error) {
	if err := checkUnit(document.FormatHTML, unit); err != nil {
		return document.Document{}, err
	}
	return document.New(unit.Path, document.FormatHTML, []byte(prose)), nil
}

// CleanText normalizes line endings, collapses in-line whitespace and
// separates the remaining lines as paragraphs.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(line), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.Join(paragraphs, "\n\n")
}
