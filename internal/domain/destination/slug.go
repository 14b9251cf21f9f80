package destination

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters that carry no combining mark and so survive accent folding.
var foldReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "œ", "oe", "ø", "o", "ł", "l", "đ", "d", "ð", "d", "þ", "th", "ı", "i",
)

// Slug builds the content id for a destination name and country.
// Latin text is folded to ASCII ("Zürich" -> "zurich"); a part with no
// ASCII letters left, such as "東京", is replaced by a short stable hash.
func Slug(name, country string) string {
	parts := make([]string, 0, 2)
	for _, s := range []string{name, country} {
		if p := slugPart(s); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}

func slugPart(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), s)
	if err != nil {
		folded = s
	}
	folded = foldReplacer.Replace(folded)

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	if out := strings.TrimSuffix(b.String(), "-"); out != "" {
		return out
	}
	sum := sha256.Sum256([]byte(norm.NFC.String(s)))
	return "u" + hex.EncodeToString(sum[:5])
}
