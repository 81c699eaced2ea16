package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxLabelLen = 120

	// Re-decode as Latin-1 when more than 1% of the decoded runes (and at
	// least replacementMin of them) came out as U+FFFD.
	replacementMin      = 10
	replacementFraction = 0.01
)

// NormalizeBufferToUTF8 decodes an arbitrary byte buffer into sanitized text.
// UTF-8 is attempted first; if the result carries an excessive share of
// replacement characters the same bytes are re-read as Latin-1, on the
// assumption the source used a single-byte legacy encoding. C0 control
// characters other than tab, newline and carriage return are stripped.
// It never fails.
func NormalizeBufferToUTF8(buf []byte) string {
	decoded, replacements := decodeUTF8(buf)
	if replacements >= replacementMin && float64(replacements) > replacementFraction*float64(len(decoded)) {
		decoded = decodeLatin1(buf)
	}
	return stripControl(decoded)
}

func decodeUTF8(buf []byte) ([]rune, int) {
	runes := make([]rune, 0, len(buf))
	replacements := 0
	for i := 0; i < len(buf); {
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size == 1 {
			replacements++
			r = unicode.ReplacementChar
		}
		runes = append(runes, r)
		i += size
	}
	return runes, replacements
}

func decodeLatin1(buf []byte) []rune {
	runes := make([]rune, len(buf))
	for i, b := range buf {
		runes[i] = rune(b)
	}
	return runes
}

func stripControl(runes []rune) string {
	var b strings.Builder
	b.Grow(len(runes))
	for _, r := range runes {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// labelPunct is the punctuation allowed to survive SafeLabel.
const labelPunct = ".,'&()+/-:!?"

// SafeLabel sanitizes a user-facing name or category: NFKC-normalized,
// stripped to a letter/digit/whitespace/limited-punctuation allow-list,
// whitespace collapsed and truncated to 120 characters. An empty result
// becomes DefaultCategory so downstream fields are never blank.
func SafeLabel(s string) string {
	normalized := norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case strings.ContainsRune(labelPunct, r):
			b.WriteRune(r)
		}
	}

	collapsed := strings.Join(strings.Fields(b.String()), " ")
	if runes := []rune(collapsed); len(runes) > maxLabelLen {
		collapsed = strings.TrimSpace(string(runes[:maxLabelLen]))
	}
	if collapsed == "" {
		return DefaultCategory
	}
	return collapsed
}
