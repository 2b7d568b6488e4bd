// Package validator checks that backend output is in the target language.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/doctran/internal/detector"
)

// minValidationLength is the rune count below which detection is too
// unreliable to reject a translation.
const minValidationLength = 20

// MismatchError reports a translation written in another language.
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

// New returns a validator using det. A nil det builds a new detector.
func New(det *detector.Detector) *Validator {
	if det == nil {
		det = detector.New()
	}
	return &Validator{det: det}
}

// IsValid reports whether translatedText is in targetLang. Short texts and
// texts of undetectable language pass. Regional targets such as en-GB are
// compared by their base language.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	base, _, _ := strings.Cut(strings.ToLower(targetLang), "-")
	if detected != base {
		return false, &MismatchError{Expected: base, Detected: detected}
	}
	return true, nil
}

// ValidateBatch checks a whole batch at once. Segments are often too short to
// detect on their own, so the detector sees them joined.
func (v *Validator) ValidateBatch(translations []string, targetLang string) error {
	var nonEmpty []string
	for _, t := range translations {
		if strings.TrimSpace(t) != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	_, err := v.IsValid(strings.Join(nonEmpty, "\n"), targetLang)
	return err
}
