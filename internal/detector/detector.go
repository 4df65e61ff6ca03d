// Package detector guesses the language of extracted prose. It backs
// source-language auto-detection and output validation.
package detector

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/peredoc/internal/markdown"
)

// minLetters is the fewest letters a sample needs before detection is tried.
const minLetters = 6

// maxSampleRunes bounds the text handed to lingua; the head of a long
// document is enough.
const maxSampleRunes = 2000

var (
	sharedOnce sync.Once
	shared     *Detector
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over all languages lingua knows. Building is
// expensive; most callers want Shared.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// Shared returns a process-wide detector built on first use.
func Shared() *Detector {
	sharedOnce.Do(func() {
		shared = New()
	})
	return shared
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if letters(text) < minLetters {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of text.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	code := strings.ToLower(lang.IsoCode639_1().String())
	if len(code) != 2 {
		return "", false
	}
	return code, true
}

// DetectDocument detects the language of Markdown-ish prose. Markup is
// rendered away first so code spans and link targets do not skew the guess.
func (d *Detector) DetectDocument(prose string) (string, bool) {
	return d.DetectISO(Sample(prose))
}

// Sample returns the plain-text head of prose used for detection.
func Sample(prose string) string {
	text := markdown.ToPlainText([]byte(prose))
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxSampleRunes {
		text = string(r[:maxSampleRunes])
	}
	return text
}

func letters(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			n++
			if n >= minLetters {
				return n
			}
		}
	}
	return n
}
