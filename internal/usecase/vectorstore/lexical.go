package vectorstore

import (
	"strings"
	"unicode"
)

// Lexical fallback similarity bounds. A record that contains the whole query
// scores LexicalMax; partial token overlap scores linearly between the bounds.
const (
	LexicalMin = 0.3
	LexicalMax = 0.7
)

// lexicalScore rates a case-insensitive text match of query against title and body.
// Zero means no match.
func lexicalScore(query, title, body string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	text := strings.ToLower(title + "\n" + body)
	if strings.Contains(text, q) {
		return LexicalMax
	}

	tokens := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	total, found := 0, 0
	for _, tok := range tokens {
		if len(tok) < 2 {
			continue
		}
		total++
		if strings.Contains(text, tok) {
			found++
		}
	}
	switch {
	case total == 0 || found == 0:
		return 0
	case found == total:
		return LexicalMax
	}
	score := LexicalMin + (LexicalMax-LexicalMin)*float64(found)/float64(total)
	return min(LexicalMax, max(LexicalMin, score))
}
