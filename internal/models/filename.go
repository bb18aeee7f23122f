package models

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"go-album-center/internal/utils"
)

var foldings = map[rune]string{
	'æ': "ae", 'Æ': "AE", 'œ': "oe", 'Œ': "OE", 'ß': "ss",
	'ø': "o", 'Ø': "O", 'đ': "d", 'Đ': "D", 'ł': "l", 'Ł': "L", 'þ': "th", 'Þ': "TH",
}

// FilesystemName folds name onto a filesystem-safe ASCII string: spaces
// become underscores and accents are stripped.
func FilesystemName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '/' || r == '\\' || r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case r < 0x80:
			b.WriteRune(r)
		default:
			if s, ok := foldings[r]; ok {
				b.WriteString(s)
			} else {
				b.WriteByte('_')
			}
		}
	}

	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "_"
	}
	return out
}

// DeriveFilename builds a default media filename from its name and the
// extension sniffed from content.
func DeriveFilename(name string, content []byte) string {
	return FilesystemName(name) + utils.SniffExtension(content)
}
