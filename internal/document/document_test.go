package document

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"docs/intro.md", FormatMarkdown},
		{"docs/page.MDX", FormatMarkdown},
		{"guide/index.rst", FormatRST},
		{"guide/index.rstx", FormatRST},
		{"site/about.html", FormatHTML},
		{"src/app.py", FormatCode},
		{"nb/demo.ipynb", FormatNotebook},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestFormatFromPath_Unsupported(t *testing.T) {
	_, err := FormatFromPath("report.docx")
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if ufe.Ext != ".docx" {
		t.Errorf("expected ext .docx, got %q", ufe.Ext)
	}
	if !strings.Contains(err.Error(), ".docx") {
		t.Errorf("error message should name the extension: %q", err.Error())
	}
}

func TestDocument_Immutable(t *testing.T) {
	buf := []byte("hello")
	doc := New("a.md", FormatMarkdown, buf)
	buf[0] = 'j'
	if doc.String() != "hello" {
		t.Errorf("document changed with caller buffer: %q", doc.String())
	}
	b := doc.Bytes()
	b[0] = 'x'
	if doc.String() != "hello" {
		t.Errorf("document changed through Bytes(): %q", doc.String())
	}
}

func TestIOError_Unwrap(t *testing.T) {
	err := &IOError{Op: "read", Path: "x.md", Err: fs.ErrNotExist}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected IOError to unwrap to fs.ErrNotExist")
	}
}

func TestReconstructionError_Message(t *testing.T) {
	err := &ReconstructionError{Format: FormatNotebook, Expected: 3, Got: 2}
	if !strings.Contains(err.Error(), "expected 3") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestExtensions_Sorted(t *testing.T) {
	exts := Extensions()
	for i := 1; i < len(exts); i++ {
		if exts[i-1] > exts[i] {
			t.Fatalf("extensions not sorted: %v", exts)
		}
	}
	if !IsSupported("x.IPYNB") {
		t.Error("expected case-insensitive extension match")
	}
}
