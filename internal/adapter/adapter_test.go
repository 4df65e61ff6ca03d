package adapter

import (
	"errors"
	"strings"
	"testing"

	"github.com/valpere/peredoc/internal/document"
)

func roundTrip(t *testing.T, a Adapter, doc document.Document) document.Document {
	t.Helper()
	unit, err := a.Extract(doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	out, err := a.Reconstruct(unit.Prose, unit)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	return out
}

func TestRegistry_ForPath(t *testing.T) {
	r := Default()
	tests := []struct {
		path string
		want document.Format
	}{
		{"a.md", document.FormatMarkdown},
		{"a.mdx", document.FormatMarkdown},
		{"a.rst", document.FormatRST},
		{"a.html", document.FormatHTML},
		{"a.py", document.FormatCode},
		{"a.ipynb", document.FormatNotebook},
	}
	for _, tt := range tests {
		a, err := r.ForPath(tt.path)
		if err != nil {
			t.Fatalf("ForPath(%q): %v", tt.path, err)
		}
		if a.Format() != tt.want {
			t.Errorf("ForPath(%q) = %s, want %s", tt.path, a.Format(), tt.want)
		}
	}
}

func TestRegistry_Unsupported(t *testing.T) {
	_, err := Default().ForPath("slides.docx")
	var ufe *document.UnsupportedFormatError
	if !errors.As(err, &ufe) || ufe.Ext != ".docx" {
		t.Fatalf("expected UnsupportedFormatError for .docx, got %v", err)
	}
}

func TestRegistry_MissingAdapter(t *testing.T) {
	r := NewRegistry(NewMarkdown())
	if _, err := r.ForPath("x.rst"); err == nil {
		t.Error("expected error when no adapter is registered")
	}
	if got := r.Formats(); len(got) != 1 || got[0] != document.FormatMarkdown {
		t.Errorf("unexpected formats %v", got)
	}
}

func TestPlain_RoundTrip(t *testing.T) {
	for _, a := range []Adapter{NewRST(), NewCode()} {
		src := "Title\n=====\n\n# comment\nprint('x')\n"
		doc := document.New("f", a.Format(), []byte(src))
		if got := roundTrip(t, a, doc); got.String() != src {
			t.Errorf("%s: round trip changed content: %q", a.Format(), got.String())
		}
	}
}

func TestReconstruct_WrongFormat(t *testing.T) {
	unit := document.ExtractedUnit{Format: document.FormatMarkdown, Context: MarkdownContext{}}
	_, err := NewRST().Reconstruct("x", unit)
	var re *document.ReconstructionError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReconstructionError, got %v", err)
	}
}

func TestCleanText(t *testing.T) {
	got := CleanText("  one   two \r\n\r\n\n three\rfour ")
	if got != "one two\n\nthree\n\nfour" {
		t.Errorf("unexpected %q", got)
	}
}

func TestHTML_ExtractPlainText(t *testing.T) {
	body := "<p>Structured documents keep their links and code blocks intact while the prose is translated. " +
		"This paragraph is long enough to be picked as readable content by the extractor.</p>"
	page := "<html><head><title>Guide</title><script>var x = 1;</script></head><body><article>" +
		"<h1>Guide</h1>" + body + body + body + "</article></body></html>"

	a := NewHTML()
	unit, err := a.Extract(document.New("site/guide.html", document.FormatHTML, []byte(page)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(unit.Prose, "Structured documents keep their links") {
		t.Errorf("prose missing body text: %q", unit.Prose)
	}
	if strings.Contains(unit.Prose, "<p>") || strings.Contains(unit.Prose, "var x") {
		t.Errorf("prose still carries markup or script: %q", unit.Prose)
	}

	out, err := a.Reconstruct("ترجمة", unit)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if out.String() != "ترجمة" || out.Format != document.FormatHTML {
		t.Errorf("unexpected output %q (%s)", out.String(), out.Format)
	}
}
