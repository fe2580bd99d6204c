package response

import (
	"io"

	"github.com/ferry-web/ferry/http/cookie"
	"github.com/ferry-web/ferry/http/status"
	"github.com/ferry-web/ferry/kv"
)

// FileStream points the response at a section of a seekable source instead
// of the in-memory body. When set it always wins over Body, even if both
// are populated. Begin and End are inclusive byte offsets.
type FileStream struct {
	Handle io.ReadSeeker
	Begin  int64
	End    int64
}

// Fields is the raw state behind the native response builder. The outbound
// adapter reads it directly via Reveal.
type Fields struct {
	Code    status.Code
	Reason  status.Status
	Headers *kv.Storage
	Cookies []cookie.Cookie
	Body    []byte
	Stream  *FileStream
}

func (f Fields) Clear() Fields {
	f.Code = status.OK
	f.Reason = ""
	f.Headers.Clear()
	f.Cookies = f.Cookies[:0]
	// body is dropped instead of truncated, as it may alias a slice passed
	// by the caller
	f.Body = nil
	f.Stream = nil

	return f
}
