package strutil

import (
	"strings"

	"github.com/indigo-web/utils/uf"
)

func LStripWS(str string) string {
	for i, c := range str {
		switch c {
		case ' ', '\t':
		default:
			return str[i:]
		}
	}

	return ""
}

// CutHeader splits a header value from its parameters, stripping the
// whitespace between them.
func CutHeader(header string) (value, params string) {
	sep := strings.IndexByte(header, ';')
	if sep == -1 {
		return header, ""
	}

	return header[:sep], LStripWS(header[sep+1:])
}

// CanonicalHeader normalizes a header name to the conventional
// Title-Case-With-Hyphens form. Already canonical names are returned as-is
// without allocating.
func CanonicalHeader(key string) string {
	upper := true

	for i := 0; i < len(key); i++ {
		c := key[i]
		if upper && 'a' <= c && c <= 'z' || !upper && 'A' <= c && c <= 'Z' {
			return canonicalizeHeader(key)
		}

		upper = c == '-'
	}

	return key
}

func canonicalizeHeader(key string) string {
	b := []byte(key)
	upper := true

	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			b[i] = c - 0x20
		} else if !upper && 'A' <= c && c <= 'Z' {
			b[i] = c + 0x20
		}

		upper = c == '-'
	}

	return uf.B2S(b)
}
