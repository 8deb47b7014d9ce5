package strings

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxTextLen caps free text coming from public forms.
const DefaultMaxTextLen = 120

// CleanText strips HTML markup, collapses runs of whitespace into a single
// space and truncates the result to maxLen runes. maxLen <= 0 means
// DefaultMaxTextLen.
func CleanText(raw string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLen
	}
	if raw == "" {
		return ""
	}
	txt := strings.Join(strings.Fields(stripTags(raw)), " ")
	if r := []rune(txt); len(r) > maxLen {
		txt = strings.TrimSpace(string(r[:maxLen]))
	}
	return txt
}

func stripTags(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; keep what was read.
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

func isRawTextTag(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

// Fold lowercases s and removes diacritics, so "Ódio" and "odio" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// ContainsAnyFolded reports whether any of texts contains any of the words,
// ignoring case and accents. words are expected to be folded already.
func ContainsAnyFolded(words []string, texts ...string) bool {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			parts = append(parts, Fold(t))
		}
	}
	blob := strings.Join(parts, " ")
	for _, w := range words {
		if w != "" && strings.Contains(blob, w) {
			return true
		}
	}
	return false
}
