package validator

import (
	"errors"
	"testing"
)

func TestValidator_Check(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		text     string
		target   string
		mismatch bool
		err      error
	}{
		{
			name:   "no target",
			text:   "Whatever the model said.",
			target: "",
		},
		{
			name:   "empty reply",
			text:   "  \n ",
			target: "de",
			err:    ErrEmpty,
		},
		{
			name:   "german as expected",
			text:   "Installieren Sie das Paket und führen Sie dann die Tests im Stammverzeichnis aus.",
			target: "de",
		},
		{
			name:     "english instead of german",
			text:     "Install the package and then run the tests from the repository root.",
			target:   "de",
			mismatch: true,
		},
		{
			name:   "regional target",
			text:   "Instale o pacote e depois execute os testes a partir da raiz do repositório.",
			target: "pt-BR",
		},
		{
			name:   "short heading passes",
			text:   "# Overview",
			target: "ar",
		},
		{
			name:   "code only passes",
			text:   "```go\nfunc main() { println(\"a long line of code here\") }\n```",
			target: "ar",
		},
		{
			name:   "arabic markdown with english code",
			text:   "## مقدمة\n\nيشرح هذا الدليل كيفية ترجمة المستندات مع الحفاظ على الروابط.\n\n```python\nprint('this code is english')\n```\n",
			target: "ar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.text, tt.target)
			var me *MismatchError
			switch {
			case tt.mismatch:
				if !errors.As(err, &me) {
					t.Fatalf("expected MismatchError, got %v", err)
				}
				if me.Expected != tt.target || me.Detected == "" {
					t.Errorf("unexpected mismatch %+v", me)
				}
			case tt.err != nil:
				if !errors.Is(err, tt.err) {
					t.Errorf("expected %v, got %v", tt.err, err)
				}
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBaseLanguage(t *testing.T) {
	tests := map[string]string{
		"pt-BR": "pt",
		"zh":    "zh",
		"UK":    "uk",
		" de ":  "de",
		"@@":    "@@",
	}
	for in, want := range tests {
		if got := baseLanguage(in); got != want {
			t.Errorf("baseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
