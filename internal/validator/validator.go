// Package validator checks that a translated chunk is written in the
// target language.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/valpere/peredoc/internal/detector"
)

// minSampleRunes is the shortest prose sample worth judging. Headings,
// table cells and code-only chunks fall below it and always pass.
const minSampleRunes = 20

// ErrEmpty is returned for a reply with no content at all.
var ErrEmpty = errors.New("translation is empty")

// MismatchError reports prose detected in a language other than the target.
type MismatchError struct {
	Expected string
	Detected string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %s but detected %s", e.Expected, e.Detected)
}

type Validator struct {
	det *detector.Detector
}

func New() *Validator {
	return &Validator{det: detector.Shared()}
}

// Check returns nil when text reads as targetLang, or when there is too
// little prose to tell. Regional tags compare by base language, so a
// "pt-BR" target accepts text detected as "pt".
func (v *Validator) Check(text, targetLang string) error {
	if strings.TrimSpace(targetLang) == "" {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmpty
	}

	sample := detector.Sample(text)
	if len([]rune(sample)) < minSampleRunes {
		return nil
	}
	detected, ok := v.det.DetectISO(sample)
	if !ok {
		return nil
	}
	if baseLanguage(detected) != baseLanguage(targetLang) {
		return &MismatchError{Expected: targetLang, Detected: detected}
	}
	return nil
}

func baseLanguage(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}
