package genai

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kailas-cloud/tripwise/internal/domain"
)

// ExtractJSON pulls a JSON object out of informally structured model output.
// It tries, in order: the whole text, a fenced code block, the first balanced
// {...} span. Each candidate also gets a pass that quotes bare keys.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	for _, c := range candidates(text) {
		if obj, ok := validObject(c); ok {
			return obj, nil
		}
		if obj, ok := validObject(repairKeys(c)); ok {
			return obj, nil
		}
	}
	return "", fmt.Errorf("no JSON object in response: %w", domain.ErrInvalidGeneration)
}

func candidates(text string) []string {
	out := []string{text}
	if fenced, ok := fencedBlock(text); ok {
		out = append(out, fenced)
	}
	if span, ok := firstObject(text); ok {
		out = append(out, span)
	}
	return out
}

func validObject(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !gjson.Valid(s) || !gjson.Parse(s).IsObject() {
		return "", false
	}
	return s, true
}

func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]
	// skip language tag
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

// firstObject returns the first brace-balanced span, ignoring braces inside strings.
func firstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// repairKeys adds the missing opening quote models sometimes drop before keys,
// turning `{ name": 1}` into `{ "name": 1}`.
func repairKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		b.WriteByte(ch)
		if ch != '{' && ch != ',' {
			continue
		}
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\t' || s[j] == '\r') {
			j++
		}
		k := j
		for k < len(s) && (isLetter(s[k]) || s[k] == '_') {
			k++
		}
		if k > j && k+1 < len(s) && s[k] == '"' && s[k+1] == ':' {
			b.WriteString(s[i+1 : j])
			b.WriteByte('"')
			b.WriteString(s[j:k])
			i = k - 1
		}
	}
	return b.String()
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
