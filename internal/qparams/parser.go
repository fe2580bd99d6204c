package qparams

import (
	"errors"

	"github.com/ferry-web/ferry/kv"
	"github.com/indigo-web/utils/uf"
)

// ErrMalformed is returned on empty keys, as well as on keys or values
// containing non-printable characters or whitespaces.
var ErrMalformed = errors.New("malformed key-value pairs")

func Into(s *kv.Storage) func(string, string) {
	return func(k string, v string) {
		s.Add(k, v)
	}
}

type (
	CB      = func(k string, v string)
	Decoder = func(src, dst []byte) (decoded, buffer []byte, err error)
)

// Parse walks ampersand-separated key=value pairs, decoding each key and value
// with the passed decoder and feeding them into cb. Keys without a value are
// reported with defFlagValue. The buffer is reused across calls and returned
// back grown.
func Parse(data, buff []byte, cb CB, decoder Decoder, defFlagValue string) (buffer []byte, err error) {
	var key string

parseKey:
	if len(data) == 0 {
		return buff, nil
	}

	var decoded []byte

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch c {
		case '=':
			decoded, buff, err = decoder(data[:i], buff)
			if err != nil {
				return buff, err
			}
			if len(decoded) == 0 {
				return buff, ErrMalformed
			}

			key = uf.B2S(decoded)
			data = data[i+1:]
			goto parseValue
		case '&':
			decoded, buff, err = decoder(data[:i], buff)
			if err != nil {
				return buff, err
			}
			if len(decoded) == 0 {
				return buff, ErrMalformed
			}

			cb(uf.B2S(decoded), defFlagValue)
			data = data[i+1:]
			goto parseKey
		}

		if illegalSymbol(c) {
			// exclude all non-printable characters and whitespaces
			return buff, ErrMalformed
		}
	}

	if containsIllegalSymbol(data) {
		return buff, ErrMalformed
	}

	decoded, buff, err = decoder(data, buff)
	if err != nil {
		return buff, err
	}
	if len(decoded) == 0 {
		return buff, ErrMalformed
	}

	cb(uf.B2S(decoded), defFlagValue)

	return buff, nil

parseValue:
	for i, c := range data {
		if c == '&' {
			decoded, buff, err = decoder(data[:i], buff)
			if err != nil {
				return buff, err
			}

			cb(key, value(decoded))
			data = data[i+1:]
			goto parseKey
		} else if illegalSymbol(c) {
			return buff, ErrMalformed
		}
	}

	if containsIllegalSymbol(data) {
		return buff, ErrMalformed
	}

	decoded, buff, err = decoder(data, buff)
	if err != nil {
		return buff, err
	}

	cb(key, value(decoded))

	return buff, nil
}

func containsIllegalSymbol(data []byte) bool {
	for _, c := range data {
		if illegalSymbol(c) {
			return true
		}
	}

	return false
}

func illegalSymbol(c byte) bool {
	return c < 0x21 || c > 0x7e
}

func value(b []byte) string {
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		b = b[1 : len(b)-1]
	}

	return uf.B2S(b)
}
