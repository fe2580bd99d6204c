package message

import (
	"iter"
	"net/netip"
	"slices"
	"time"

	"github.com/ferry-web/ferry/http/method"
	"github.com/ferry-web/ferry/http/proto"
	"github.com/ferry-web/ferry/kv"
)

// Origin carries the transport-level metadata of an inbound request.
type Origin struct {
	Remote netip.AddrPort
	Time   time.Time
}

// Request is an immutable inbound HTTP message. Modifier methods return a
// copy with the change applied; the receiver and everything previously
// derived from it stay intact. The body stream is a handle and is shared
// between copies.
type Request struct {
	method  method.Method
	target  string
	proto   proto.Proto
	headers *kv.Storage
	body    Stream
	origin  Origin
	uploads []UploadedFile
}

// NewRequest constructs a request, taking ownership of headers and
// uploads. The caller must not retain them. Nil headers and body default
// to empty.
func NewRequest(
	m method.Method,
	target string,
	p proto.Proto,
	headers *kv.Storage,
	body Stream,
	origin Origin,
	uploads []UploadedFile,
) *Request {
	if headers == nil {
		headers = kv.New()
	}

	if body == nil {
		body = EmptyStream()
	}

	return &Request{m, target, p, headers, body, origin, uploads}
}

func (r *Request) Method() method.Method {
	return r.method
}

// Target returns the request target as it arrived, path and query
// included.
func (r *Request) Target() string {
	return r.target
}

func (r *Request) Proto() proto.Proto {
	return r.proto
}

// Header returns the first value of the header, or an empty string if
// it isn't present.
func (r *Request) Header(key string) string {
	return r.headers.Value(key)
}

// HeaderValues iterates over all values of the header in insertion order.
func (r *Request) HeaderValues(key string) iter.Seq[string] {
	return r.headers.Values(key)
}

// Headers iterates over all header pairs in insertion order.
func (r *Request) Headers() iter.Seq2[string, string] {
	return r.headers.Pairs()
}

// HeaderKeys iterates over the distinct header names in first-seen order.
func (r *Request) HeaderKeys() iter.Seq[string] {
	return r.headers.Keys()
}

func (r *Request) HasHeader(key string) bool {
	return r.headers.Has(key)
}

func (r *Request) Body() Stream {
	return r.body
}

func (r *Request) Origin() Origin {
	return r.origin
}

// Uploads iterates over the files the host runtime decoded from the
// request body, in arrival order.
func (r *Request) Uploads() iter.Seq[UploadedFile] {
	return func(yield func(UploadedFile) bool) {
		for _, upload := range r.uploads {
			if !yield(upload) {
				return
			}
		}
	}
}

func (r *Request) UploadCount() int {
	return len(r.uploads)
}

func (r *Request) WithMethod(m method.Method) *Request {
	dup := r.fork()
	dup.method = m

	return dup
}

func (r *Request) WithTarget(target string) *Request {
	dup := r.fork()
	dup.target = target

	return dup
}

func (r *Request) WithProto(p proto.Proto) *Request {
	dup := r.fork()
	dup.proto = p

	return dup
}

// WithHeader replaces all values of the header with the single given one.
func (r *Request) WithHeader(key, value string) *Request {
	dup := r.fork()
	dup.headers.Set(key, value)

	return dup
}

// WithAddedHeader appends a value, preserving those already present.
func (r *Request) WithAddedHeader(key, value string) *Request {
	dup := r.fork()
	dup.headers.Add(key, value)

	return dup
}

func (r *Request) WithoutHeader(key string) *Request {
	dup := r.fork()
	dup.headers.Delete(key)

	return dup
}

func (r *Request) WithBody(body Stream) *Request {
	if body == nil {
		body = EmptyStream()
	}

	dup := r.fork()
	dup.body = body

	return dup
}

func (r *Request) WithUploads(uploads []UploadedFile) *Request {
	dup := r.fork()
	dup.uploads = uploads

	return dup
}

func (r *Request) fork() *Request {
	dup := *r
	dup.headers = r.headers.Clone()
	dup.uploads = slices.Clone(r.uploads)

	return &dup
}
