package markdown

import (
	"strings"
	"testing"
)

func TestToPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading and emphasis", "# Title\n\nSome *text* here.", "Title Some text here."},
		{"entities", "Fish & chips \"quoted\"", "Fish & chips \"quoted\""},
		{"code block dropped", "Before\n\n```\nx := 1\n```\n\nAfter", "Before After"},
		{"link text kept", "Read [the docs](https://example.com).", "Read the docs."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(strings.Fields(ToPlainText([]byte(tt.in))), " ")
			if got != tt.want {
				t.Errorf("ToPlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripHTMLTags(t *testing.T) {
	if got := StripHTMLTags("<p>a <b>b</b></p>"); got != "a b" {
		t.Errorf("unexpected %q", got)
	}
}
