// Package document defines the file-level types shared by the format
// adapters and the pipeline: the format tag, the immutable Document and the
// ExtractedUnit that carries translatable prose together with the context
// needed to rebuild the original structure.
package document

import (
	"path/filepath"
	"sort"
	"strings"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatRST      Format = "rst"
	FormatHTML     Format = "html"
	FormatCode     Format = "code"
	FormatNotebook Format = "notebook"
)

// extensions maps lower-case file extensions to their format tag.
var extensions = map[string]Format{
	".md":    FormatMarkdown,
	".mdx":   FormatMarkdown,
	".rst":   FormatRST,
	".rstx":  FormatRST,
	".html":  FormatHTML,
	".py":    FormatCode,
	".ipynb": FormatNotebook,
}

// FormatFromPath derives the format tag from the file extension. Unknown
// extensions yield an *UnsupportedFormatError naming the extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", &UnsupportedFormatError{Ext: ext, Path: path}
}

// IsSupported reports whether path has a registered extension.
func IsSupported(path string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the supported extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// ExtensionFormats returns a copy of the extension → format table.
func ExtensionFormats() map[string]Format {
	out := make(map[string]Format, len(extensions))
	for k, v := range extensions {
		out[k] = v
	}
	return out
}

// Document is a file's content tagged with its format. A translated
// document is always a new value; content is never mutated in place.
type Document struct {
	Path    string
	Format  Format
	content []byte
}

// New copies content so the caller's buffer can be reused.
func New(path string, format Format, content []byte) Document {
	c := make([]byte, len(content))
	copy(c, content)
	return Document{Path: path, Format: format, content: c}
}

// Bytes returns a copy of the document content.
func (d Document) Bytes() []byte {
	c := make([]byte, len(d.content))
	copy(c, d.content)
	return c
}

func (d Document) String() string {
	return string(d.content)
}

func (d Document) Len() int {
	return len(d.content)
}

// ExtractedUnit is the prose pulled out of a Document plus an opaque,
// format-specific reconstruction context. The context is owned by the
// adapter that produced it and is read-only after extraction.
type ExtractedUnit struct {
	Path    string
	Format  Format
	Prose   string
	Context any
}
