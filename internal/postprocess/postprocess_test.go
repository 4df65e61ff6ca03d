package postprocess

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		source string
		want   string
	}{
		{"empty", "", "", ""},
		{"plain", "  Ein Satz.\n", "A sentence.", "Ein Satz."},
		{
			name:   "thinking block",
			reply:  "<thinking>Let me translate</thinking>Ein Satz.",
			source: "A sentence.",
			want:   "Ein Satz.",
		},
		{
			name:   "several reasoning blocks",
			reply:  "<think>a</think>Eins<reflection>b</reflection> zwei",
			source: "One two",
			want:   "Eins zwei",
		},
		{
			name:   "truncated block",
			reply:  "Ein Satz.<reasoning>The model was cut",
			source: "A sentence.",
			want:   "Ein Satz.",
		},
		{
			name:   "source documents think tags",
			reply:  "Modelle schreiben <think>...</think> vor der Antwort.",
			source: "Models write <think>...</think> before the answer.",
			want:   "Modelle schreiben <think>...</think> vor der Antwort.",
		},
		{
			name:   "preamble",
			reply:  "Here is the translation:\n# Titel",
			source: "# Title",
			want:   "# Titel",
		},
		{
			name:   "polite preamble",
			reply:  "Sure, here's the translated text in German:\nHallo",
			source: "Hello",
			want:   "Hallo",
		},
		{
			name:   "bare sure kept",
			reply:  "Sicher, das geht.",
			source: "Sure, that works.",
			want:   "Sicher, das geht.",
		},
		{
			name:   "sure without preamble kept",
			reply:  "Sure, it works.",
			source: "Klar, es geht.",
			want:   "Sure, it works.",
		},
		{
			name:   "source starts with preamble",
			reply:  "Translation: a process.",
			source: "Translation: a process.",
			want:   "Translation: a process.",
		},
		{
			name:   "wrapping quotes",
			reply:  "“Ein Satz.”",
			source: "A sentence.",
			want:   "Ein Satz.",
		},
		{
			name:   "guillemets",
			reply:  "«Une phrase.»",
			source: "A sentence.",
			want:   "Une phrase.",
		},
		{
			name:   "quoted source keeps quotes",
			reply:  "\"Hallo\"",
			source: "\"Hello\"",
			want:   "\"Hallo\"",
		},
		{
			name:   "two quotations",
			reply:  "\"a\" und \"b\"",
			source: "a and b",
			want:   "\"a\" und \"b\"",
		},
		{
			name:   "full cleanup",
			reply:  "<thinking>x</thinking>Here's the polished translation:\n\"Ergebnis\"",
			source: "Result",
			want:   "Ergebnis",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.reply, tt.source); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}

func TestCleanFence(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		source string
		want   string
	}{
		{
			name:   "wrapped reply",
			reply:  "```markdown\n# عنوان\n\nنص\n```",
			source: "# Title\n\nText",
			want:   "# عنوان\n\nنص",
		},
		{
			name:   "source is a fence",
			reply:  "```python\nprint(1)\n```",
			source: "```python\nprint(1)\n```",
			want:   "```python\nprint(1)\n```",
		},
		{
			name:   "inner fences kept",
			reply:  "```\na\n```\nprose\n```\nb\n```",
			source: "a prose b",
			want:   "```\na\n```\nprose\n```\nb\n```",
		},
		{
			name:   "preamble then fence",
			reply:  "Here is the translation:\n```md\nHallo\n```",
			source: "Hello",
			want:   "Hallo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.reply, tt.source); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}
