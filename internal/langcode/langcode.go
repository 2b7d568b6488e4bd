// Package langcode normalises user supplied languages. A language may be
// given as a BCP 47 tag ("fr", "pt-BR") or as its English name ("French").
package langcode

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto asks the pipeline to detect the source language.
const Auto = "auto"

var common = []string{
	"af", "ar", "az", "be", "bg", "bn", "bs", "ca", "cs", "cy", "da", "de", "el", "en", "es",
	"et", "eu", "fa", "fi", "fil", "fr", "ga", "gl", "gu", "he", "hi", "hr", "hu", "hy", "id",
	"is", "it", "ja", "ka", "kk", "km", "kn", "ko", "lt", "lv", "mk", "ml", "mn", "mr", "ms",
	"mt", "nb", "ne", "nl", "no", "pa", "pl", "pt", "ro", "ru", "sk", "sl", "sq", "sr", "sv",
	"sw", "ta", "te", "th", "tr", "uk", "ur", "uz", "vi", "zh",
}

var (
	namesOnce sync.Once
	names     map[string]language.Tag
)

func byName() map[string]language.Tag {
	namesOnce.Do(func() {
		names = make(map[string]language.Tag, len(common))
		namer := display.English.Languages()
		for _, code := range common {
			tag := language.MustParse(code)
			if name := namer.Name(tag); name != "" {
				names[strings.ToLower(name)] = tag
			}
		}
	})
	return names
}

// Parse returns the canonical tag string for s. Auto and the empty string
// both yield Auto.
func Parse(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Auto) {
		return Auto, nil
	}
	if tag, ok := byName()[strings.ToLower(s)]; ok {
		return tag.String(), nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("unknown language %q: %w", s, err)
	}
	return tag.String(), nil
}

// ParseTarget is Parse for a target language, where Auto is not allowed.
func ParseTarget(s string) (string, error) {
	code, err := Parse(s)
	if err != nil {
		return "", err
	}
	if code == Auto {
		return "", fmt.Errorf("target language is required")
	}
	return code, nil
}

// Name returns the English name of code, or code itself when unknown.
func Name(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
