package translator

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(TranslateRequest{
		Text:            "## Setup\n\nInstall the CLI.",
		SourceLang:      "en",
		TargetLang:      "ar",
		GlossaryTerms:   map[string]string{"CLI": "واجهة سطر الأوامر", "API": "واجهة برمجة"},
		PreviousContext: "the previous paragraph ends here",
		Instructions:    "Use formal register.",
	}, true)

	if p.User != "## Setup\n\nInstall the CLI." {
		t.Errorf("User = %q", p.User)
	}
	for _, want := range []string{
		"from English to Arabic",
		"[PHn]",
		"Use formal register.",
		"TERMINOLOGY",
		"CONTEXT",
		"the previous paragraph ends here",
	} {
		if !strings.Contains(p.System, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if strings.Index(p.System, "API →") > strings.Index(p.System, "CLI →") {
		t.Error("glossary terms should be sorted")
	}
}

func TestBuildPrompt_Minimal(t *testing.T) {
	p := BuildPrompt(TranslateRequest{Text: "x", TargetLang: "de"}, false)
	for _, absent := range []string{"[PHn]", "TERMINOLOGY", "CONTEXT"} {
		if strings.Contains(p.System, absent) {
			t.Errorf("system prompt should not contain %q", absent)
		}
	}
	if !strings.Contains(p.System, "from the detected language to German") {
		t.Errorf("unexpected language line: %q", p.System)
	}
}

func TestLanguageName(t *testing.T) {
	tests := map[string]string{
		"en":    "English",
		"uk":    "Ukrainian",
		"auto":  "the detected language",
		"":      "the detected language",
		"xx-?!": "xx-?!",
	}
	for code, want := range tests {
		if got := languageName(code); got != want {
			t.Errorf("languageName(%q) = %q, want %q", code, got, want)
		}
	}
}
