package adapter

import (
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/valpere/peredoc/internal/document"
)

var (
	// frontmatterBlock matches a YAML front matter block at the start of the file.
	// Both delimiters must be a line of exactly three dashes.
	frontmatterBlock = regexp.MustCompile(`(?s)^---[ \t]*\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|$)`)
	emptyFrontmatter = regexp.MustCompile(`^---[ \t]*\r?\n---[ \t]*(?:\r?\n|$)`)
)

// Field is one top-level front matter entry. Non-scalar values are kept as
// their YAML encoding.
type Field struct {
	Key   string
	Value string
}

// FrontMatter is the metadata block of a Markdown document. Raw holds the
// block byte-for-byte, delimiters included, and is what reconstruction
// writes back.
type FrontMatter struct {
	Raw    string
	Fields []Field
}

// Get returns the value of key.
func (fm *FrontMatter) Get(key string) (string, bool) {
	if fm == nil {
		return "", false
	}
	for _, f := range fm.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// MarkdownContext is the reconstruction context of Markdown and MDX files.
// FrontMatter is nil when the file has none.
type MarkdownContext struct {
	FrontMatter *FrontMatter
}

type markdownAdapter struct{}

func NewMarkdown() Adapter { return markdownAdapter{} }

func (markdownAdapter) Format() document.Format { return document.FormatMarkdown }

func (markdownAdapter) Extract(doc document.Document) (document.ExtractedUnit, error) {
	text := doc.String()
	unit := document.ExtractedUnit{Path: doc.Path, Format: document.FormatMarkdown}

	if loc := emptyFrontmatter.FindStringIndex(text); loc != nil {
		unit.Prose = text[loc[1]:]
		unit.Context = MarkdownContext{FrontMatter: &FrontMatter{Raw: text[:loc[1]]}}
		return unit, nil
	}

	m := frontmatterBlock.FindStringSubmatchIndex(text)
	if m == nil {
		unit.Prose = text
		unit.Context = MarkdownContext{}
		return unit, nil
	}

	fields, err := parseFrontMatter(text[m[2]:m[3]])
	if err != nil {
		return document.ExtractedUnit{}, &document.ExtractionError{Format: document.FormatMarkdown, Err: err}
	}

	unit.Prose = text[m[1]:]
	unit.Context = MarkdownContext{FrontMatter: &FrontMatter{Raw: text[:m[1]], Fields: fields}}
	return unit, nil
}

func (markdownAdapter) Reconstruct(prose string, unit document.ExtractedUnit) (document.Document, error) {
	if err := checkUnit(document.FormatMarkdown, unit); err != nil {
		return document.Document{}, err
	}
	ctx, ok := unit.Context.(MarkdownContext)
	if !ok {
		return document.Document{}, &document.ReconstructionError{
			Format: document.FormatMarkdown,
			Err:    fmt.Errorf("unexpected context type %T", unit.Context),
		}
	}

	out := prose
	if ctx.FrontMatter != nil {
		out = ctx.FrontMatter.Raw + prose
	}
	return document.New(unit.Path, document.FormatMarkdown, []byte(out)), nil
}

// parseFrontMatter validates the block as a YAML mapping and returns its
// top-level entries in document order.
func parseFrontMatter(raw string) ([]Field, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("front matter: not a mapping")
	}

	fields := make([]Field, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		f := Field{Key: key.Value}
		if val.Kind == yaml.ScalarNode {
			f.Value = val.Value
		} else {
			b, err := yaml.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("front matter %q: %w", key.Value, err)
			}
			f.Value = string(b)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
