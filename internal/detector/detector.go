// Package detector identifies the language of extracted text.
package detector

import (
	"strings"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// sampleChars caps how much text DetectSample feeds the detector.
const sampleChars = 2000

// Detector wraps a lingua detector built for every language. Building it
// loads large models, so one instance should be shared.
type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build(),
	}
}

// Detect returns the language of text. Text without letters is never
// detected.
func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if !hasLetters(text) {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the ISO 639-1 code of text, lower-cased.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// DetectSample detects the dominant language of a document from its first
// texts. Texts without letters, such as numbers and cell references, are
// skipped.
func (d *Detector) DetectSample(texts []string) (string, bool) {
	var sb strings.Builder
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if !hasLetters(t) {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(t)
		if sb.Len() >= sampleChars {
			break
		}
	}
	return d.DetectISO(sb.String())
}

func hasLetters(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
