package config

import "github.com/ferry-web/ferry/kv"

// BodyParser decodes a raw request body into its structured form.
//
// value is installed on the native request as the parsed body. Parsers for
// pair-shaped formats may additionally return flat pairs for the post
// table; nil pairs leave the table empty. Returned errors are wrapped into
// a body-parse failure by the caller, so parsers don't classify their own.
type BodyParser interface {
	Parse(body []byte) (value any, pairs []kv.Pair, err error)
}
