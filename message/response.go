package message

import (
	"iter"

	"github.com/ferry-web/ferry/http/status"
	"github.com/ferry-web/ferry/kv"
)

// Response is an immutable outbound HTTP message. Modifier methods return
// a copy with the change applied; the receiver stays intact. The body
// stream is a handle and is shared between copies.
type Response struct {
	code    status.Code
	reason  status.Status
	headers *kv.Storage
	body    Stream
}

// NewResponse constructs a response, taking ownership of headers. The
// caller must not retain them. Nil headers and body default to empty.
func NewResponse(code status.Code, reason status.Status, headers *kv.Storage, body Stream) *Response {
	if headers == nil {
		headers = kv.New()
	}

	if body == nil {
		body = EmptyStream()
	}

	return &Response{code, reason, headers, body}
}

func (r *Response) Code() status.Code {
	return r.code
}

// Reason returns the reason phrase verbatim, empty included. Consumers
// wanting the standard text for the code fall back via status.Text.
func (r *Response) Reason() status.Status {
	return r.reason
}

// Header returns the first value of the header, or an empty string if
// it isn't present.
func (r *Response) Header(key string) string {
	return r.headers.Value(key)
}

// HeaderValues iterates over all values of the header in insertion order.
func (r *Response) HeaderValues(key string) iter.Seq[string] {
	return r.headers.Values(key)
}

// Headers iterates over all header pairs in insertion order.
func (r *Response) Headers() iter.Seq2[string, string] {
	return r.headers.Pairs()
}

// HeaderKeys iterates over the distinct header names in first-seen order.
func (r *Response) HeaderKeys() iter.Seq[string] {
	return r.headers.Keys()
}

func (r *Response) HasHeader(key string) bool {
	return r.headers.Has(key)
}

func (r *Response) Body() Stream {
	return r.body
}

func (r *Response) WithStatus(code status.Code, reason status.Status) *Response {
	dup := r.fork()
	dup.code, dup.reason = code, reason

	return dup
}

// WithHeader replaces all values of the header with the single given one.
func (r *Response) WithHeader(key, value string) *Response {
	dup := r.fork()
	dup.headers.Set(key, value)

	return dup
}

// WithAddedHeader appends a value, preserving those already present.
func (r *Response) WithAddedHeader(key, value string) *Response {
	dup := r.fork()
	dup.headers.Add(key, value)

	return dup
}

func (r *Response) WithoutHeader(key string) *Response {
	dup := r.fork()
	dup.headers.Delete(key)

	return dup
}

func (r *Response) WithBody(body Stream) *Response {
	if body == nil {
		body = EmptyStream()
	}

	dup := r.fork()
	dup.body = body

	return dup
}

func (r *Response) fork() *Response {
	dup := *r
	dup.headers = r.headers.Clone()

	return &dup
}
