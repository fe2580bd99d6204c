package http

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ferry-web/ferry/http/cookie"
	"github.com/ferry-web/ferry/http/mime"
	"github.com/ferry-web/ferry/http/status"
	"github.com/ferry-web/ferry/internal/response"
	"github.com/ferry-web/ferry/kv"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

// FileStream is re-exported for handlers constructing descriptors manually.
// Most should prefer Response.File or Response.Stream.
type FileStream = response.FileStream

const (
	preallocHeaders = 7
	defaultFileMIME = mime.OctetStream
)

// Response is the native mutable response the framework side works
// against. It accumulates status, headers, cookies and a body; the
// outbound adapter later converts the whole of it into an immutable
// message. Methods are chainable and may be called in any order.
type Response struct {
	fields *response.Fields
}

func NewResponse() *Response {
	return &Response{
		&response.Fields{
			Code:    status.OK,
			Headers: kv.NewPrealloc(preallocHeaders),
		},
	}
}

// Code sets the response code. The reason phrase is left untouched.
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Reason sets a custom reason phrase. When left empty, the standard text
// for the code is used at emission.
func (r *Response) Reason(reason status.Status) *Response {
	r.fields.Reason = reason
	return r
}

// ContentType sets the Content-Type header value, replacing any previous
// one.
func (r *Response) ContentType(value mime.MIME) *Response {
	r.fields.Headers.Set("Content-Type", value)
	return r
}

// Header appends values to a header. Values already present are kept.
func (r *Response) Header(key string, values ...string) *Response {
	for i := range values {
		r.fields.Headers.Add(key, values[i])
	}

	return r
}

// Headers merges the passed map into the response headers.
func (r *Response) Headers(headers map[string][]string) *Response {
	resp := r

	for k, v := range headers {
		resp = resp.Header(k, v...)
	}

	return resp
}

// String sets the response body to the passed string.
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the response body to the passed slice WITHOUT copying it.
// Changing the slice later will affect the response.
func (r *Response) Bytes(body []byte) *Response {
	r.fields.Body = body
	return r
}

// Write implements io.Writer by appending to the body. It always returns
// n=len(b) and err=nil.
func (r *Response) Write(b []byte) (n int, err error) {
	r.fields.Body = append(r.fields.Body, b...)
	return len(b), nil
}

// TryJSON encodes the model into the body and sets the content type.
func (r *Response) TryJSON(model any) (*Response, error) {
	r.fields.Body = r.fields.Body[:0]
	stream := json.ConfigDefault.BorrowStream(r)
	stream.WriteVal(model)
	err := stream.Flush()
	json.ConfigDefault.ReturnStream(stream)

	return r.ContentType(mime.JSON), err
}

// JSON does the same as TryJSON does, except the error is implicitly
// wrapped by Error.
func (r *Response) JSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Cookie adds cookies. The outbound adapter renders each one as its own
// Set-Cookie header, signing values when validation is configured.
func (r *Response) Cookie(cookies ...cookie.Cookie) *Response {
	r.fields.Cookies = append(r.fields.Cookies, cookies...)
	return r
}

// Stream points the response at the [begin, end] section of a seekable
// source. The descriptor always takes precedence over the in-memory body,
// even when both are set. Offsets are inclusive and validated by the
// outbound adapter, not here.
func (r *Response) Stream(handle io.ReadSeeker, begin, end int64) *Response {
	r.fields.Stream = &response.FileStream{Handle: handle, Begin: begin, End: end}
	return r
}

// TryFile opens a file for reading and points the response at its whole
// content, deriving the content type from the extension. Empty files
// degrade to an empty in-memory body, as there is no byte to stream.
func (r *Response) TryFile(path string) (*Response, error) {
	fd, err := os.Open(path)
	if err != nil {
		// if we can't open it, it doesn't exist
		return r, status.ErrNotFound
	}

	stat, err := fd.Stat()
	if err != nil {
		// ...and if we can't stat it, it exists, yet something in the system
		// went wrong
		return r, status.ErrInternalServerError
	}
	if stat.IsDir() {
		return r, status.ErrNotFound
	}

	contentType := mime.Extension[filepath.Ext(path)]
	if len(contentType) == 0 {
		contentType = defaultFileMIME
	}

	r.ContentType(contentType)

	if stat.Size() == 0 {
		return r.Bytes(nil), nil
	}

	return r.Stream(fd, 0, stat.Size()-1), nil
}

// File does the same as TryFile does, except the error is implicitly
// wrapped by Error.
func (r *Response) File(path string) *Response {
	resp, err := r.TryFile(path)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Error sets an error response. If the passed err is nil, nothing happens.
// For status.HTTPError the code is taken from the error itself; otherwise
// the first of code is used, defaulting to 500 Internal Server Error.
func (r *Response) Error(err error, code ...status.Code) *Response {
	if err == nil {
		return r
	}

	if httpErr, ok := err.(status.HTTPError); ok {
		return r.
			Code(httpErr.Code).
			String(httpErr.Message)
	}

	c := status.InternalServerError
	if len(code) > 0 {
		// peek the first, ignore the rest
		c = code[0]
	}

	return r.
		Code(c).
		String(err.Error())
}

// Reveal returns the raw fields behind the builder. Used by the outbound
// adapter; handlers normally have no reason to touch it.
func (r *Response) Reveal() *response.Fields {
	return r.fields
}

// Clear discards everything done with the response before, keeping the
// allocated storage for reuse.
func (r *Response) Clear() *Response {
	*r.fields = r.fields.Clear()
	return r
}
