package translator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/valpere/doctran/internal/placeholder"
	"github.com/valpere/doctran/internal/postprocess"
)

// LLM backends translate a batch as a JSON array of strings and expect a JSON
// array of the same length back.

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// buildSystemPrompt constructs the system prompt, optionally injecting
// glossary terms and extra instructions.
func buildSystemPrompt(sourceLang, targetLang string, count int, glossary map[string]string, instructions string) string {
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "the detected language"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a professional translator. Translate every string of the JSON array from %s to %s.\n", sourceLang, targetLang))
	sb.WriteString(fmt.Sprintf("Respond with a JSON array of exactly %d strings, in the same order, and nothing else. ", count))
	sb.WriteString("Do not merge, split, drop or reorder elements. Keep leading and trailing spaces of each string. ")
	sb.WriteString(placeholder.InstructionHint())

	if instructions != "" {
		sb.WriteString(" ")
		sb.WriteString(instructions)
	}

	if len(glossary) > 0 {
		terms := make([]string, 0, len(glossary))
		for src := range glossary {
			terms = append(terms, src)
		}
		sort.Strings(terms)
		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
		for _, src := range terms {
			sb.WriteString(fmt.Sprintf("  %s → %s\n", src, glossary[src]))
		}
	}

	return sb.String()
}

// protectedBatch is a batch with markup replaced by placeholders.
type protectedBatch struct {
	source    []string
	protected []placeholder.Protected
	payload   string
}

func protectBatch(texts []string) (*protectedBatch, error) {
	b := &protectedBatch{source: texts, protected: make([]placeholder.Protected, len(texts))}
	protected := make([]string, len(texts))
	for i, text := range texts {
		b.protected[i] = placeholder.Protect(text)
		protected[i] = b.protected[i].Text
	}
	data, err := json.Marshal(protected)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}
	b.payload = string(data)
	return b, nil
}

// restore parses the model answer and puts markup and whitespace back. A
// wrong element count is returned as is; the caller reports the mismatch.
// A dropped marker fails the batch since the node's markup would be lost.
func (b *protectedBatch) restore(content string) ([]string, error) {
	translations, err := parseTranslations(content)
	if err != nil {
		return nil, err
	}
	if len(translations) != len(b.source) {
		return translations, nil
	}
	for i, t := range translations {
		if missing := b.protected[i].Missing(t); len(missing) > 0 {
			return nil, fmt.Errorf("translation %d dropped placeholders %v", i, missing)
		}
		t = b.protected[i].Restore(t)
		translations[i] = postprocess.CleanSegment(b.source[i], t)
	}
	return translations, nil
}

func parseTranslations(content string) ([]string, error) {
	content = postprocess.StripThinking(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation response as JSON array: %w: %s", err, truncate(content, 300))
	}
	return translations, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
