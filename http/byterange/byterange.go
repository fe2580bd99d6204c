package byterange

import (
	"strings"

	"github.com/indigo-web/utils/uf"
)

// Header is the canonical name of the header the package deals with.
const Header = "Content-Range"

// LengthUnknown is stored in ContentRange.Length when the complete length
// of the representation is not known (a star on the wire).
const LengthUnknown int64 = -1

const unit = "bytes"

// ContentRange is a parsed Content-Range header value. First and Last are
// inclusive byte positions. Only the bytes unit exists: values in other
// units do not parse, and formatting always writes bytes.
type ContentRange struct {
	First  int64
	Last   int64
	Length int64
}

// Complete returns whether the total representation length is known.
func (c ContentRange) Complete() bool {
	return c.Length != LengthUnknown
}

// Span returns the number of bytes the range covers.
func (c ContentRange) Span() int64 {
	return c.Last - c.First + 1
}

func (c ContentRange) String() string {
	buff := make([]byte, 0, len(unit)+64)
	buff = append(buff, unit...)
	buff = append(buff, ' ')
	buff = appendDec(buff, c.First)
	buff = append(buff, '-')
	buff = appendDec(buff, c.Last)
	buff = append(buff, '/')
	if c.Length == LengthUnknown {
		buff = append(buff, '*')
	} else {
		buff = appendDec(buff, c.Length)
	}

	return uf.B2S(buff)
}

// Parse parses a Content-Range value of the form
//
//	bytes <first>-<last>/<length>
//
// where length may be a star. Malformed values, units other than bytes and
// ranges with first exceeding last result in ok=false. Numbers are strict
// decimal with no sign and no leading zeros, so every value that parses
// formats back to itself.
func Parse(value string) (cr ContentRange, ok bool) {
	value, found := strings.CutPrefix(value, unit+" ")
	if !found {
		return cr, false
	}

	first, rest, found := strings.Cut(value, "-")
	if !found {
		return cr, false
	}

	last, length, found := strings.Cut(rest, "/")
	if !found {
		return cr, false
	}

	if cr.First, ok = parseDec(first); !ok {
		return cr, false
	}

	if cr.Last, ok = parseDec(last); !ok {
		return cr, false
	}

	if cr.First > cr.Last {
		return cr, false
	}

	if length == "*" {
		cr.Length = LengthUnknown
		return cr, true
	}

	if cr.Length, ok = parseDec(length); !ok {
		return cr, false
	}

	return cr, true
}

func parseDec(str string) (n int64, ok bool) {
	if len(str) == 0 || (len(str) > 1 && str[0] == '0') {
		return 0, false
	}

	for i := 0; i < len(str); i++ {
		char := str[i]
		if char < '0' || char > '9' {
			return 0, false
		}

		n = n*10 + int64(char-'0')
		if n < 0 {
			// overflow
			return 0, false
		}
	}

	return n, true
}

func appendDec(buff []byte, n int64) []byte {
	if n < 0 {
		// not representable on the wire; normalize instead of panicking
		n = 0
	}

	var tmp [20]byte
	pos := len(tmp)
	for {
		pos--
		tmp[pos] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}

	return append(buff, tmp[pos:]...)
}
