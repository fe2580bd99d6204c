package http

import (
	"net/netip"
	"time"

	"github.com/ferry-web/ferry/config"
	"github.com/ferry-web/ferry/http/method"
	"github.com/ferry-web/ferry/http/mime"
	"github.com/ferry-web/ferry/http/proto"
	"github.com/ferry-web/ferry/http/status"
	"github.com/ferry-web/ferry/kv"
	"github.com/ferry-web/ferry/message"
	json "github.com/json-iterator/go"
)

type (
	Headers = *kv.Storage
	// Table is a per-request key-value table (query, post or cookies).
	Table = *kv.Storage
)

// Request is the native mutable request the framework side works against.
// The inbound adapter populates it from an immutable message at attach
// time; the worker clears it at detach. Framework code is free to mutate
// it in between, as no two requests are ever concurrently handled within
// one process.
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// Target is the request target as it arrived, path and query included.
	Target string
	// Path is the decoded path portion of the target.
	Path string
	// Proto is the protocol version the message arrived over.
	Proto proto.Proto
	// Headers holds the proxy-trust-filtered header view. Keys are
	// normalized to Title-Case-with-hyphens, lookup stays case-insensitive.
	Headers Headers
	// Query, Post and Cookies are the per-request parameter tables. Cookies
	// contains only values whose signature verified, when validation is on.
	Query   Table
	Post    Table
	Cookies Table
	// Uploads is the translated upload tree.
	Uploads *UploadSet
	// Body is the raw body as it arrived, before any parser ran.
	Body []byte
	// BodyValue is the structured result of the body parser, if one
	// matched. Its dynamic type is parser-specific.
	BodyValue any
	// Remote holds the peer address. Note that with proxies in the middle
	// this is the proxy, not the user.
	Remote netip.AddrPort
	// Time is the moment the host runtime accepted the request.
	Time time.Time

	msg *message.Request
	cfg *config.Config
}

func NewRequest(cfg *config.Config) *Request {
	prealloc := cfg.Request.Prealloc

	return &Request{
		Method:  method.Unknown,
		Proto:   proto.HTTP11,
		Headers: kv.NewPrealloc(prealloc.Headers),
		Query:   kv.NewPrealloc(prealloc.Query),
		Post:    kv.NewPrealloc(prealloc.Post),
		Cookies: kv.NewPrealloc(prealloc.Cookies),
		Uploads: NewUploadSet(),
		cfg:     cfg,
	}
}

// Attach installs the inbound message the request was translated from.
func (r *Request) Attach(msg *message.Request) {
	r.msg = msg
}

// Attached tells whether an inbound message is currently installed.
func (r *Request) Attached() bool {
	return r.msg != nil
}

// Message returns the attached inbound message, nil before attach.
func (r *Request) Message() *message.Request {
	return r.msg
}

// CSRFToken looks up the configured CSRF header on the attached message,
// case-insensitively. An absent header or a detached request yields an
// empty token, never an error.
func (r *Request) CSRFToken() string {
	if r.msg == nil {
		return ""
	}

	return r.msg.Header(r.cfg.Request.CSRFHeader)
}

// ContentType reports the Content-Type header as it arrived, parameters
// included. Requests carrying none yield an empty string.
func (r *Request) ContentType() string {
	return r.Headers.Value("Content-Type")
}

// JSON hands the raw body over to a json unmarshaller.
//
// Please note: the method cannot be used on requests with Content-Type
// incompatible with mime.JSON (status.ErrUnsupportedMediaType is returned
// in this case).
func (r *Request) JSON(model any) error {
	if !mime.Complies(mime.JSON, r.ContentType()) {
		return status.ErrUnsupportedMediaType
	}

	iterator := json.ConfigDefault.BorrowIterator(r.Body)
	iterator.ReadVal(model)
	err := iterator.Error
	json.ConfigDefault.ReturnIterator(iterator)

	return err
}

// Form returns the post table for form-shaped requests. If the request's
// MIME type is defined and is neither mime.FormUrlencoded nor
// mime.Multipart, status.ErrUnsupportedMediaType is returned. Whether the
// table carries anything depends on the parser registered for the type.
func (r *Request) Form() (Table, error) {
	switch {
	case mime.Complies(mime.FormUrlencoded, r.ContentType()),
		mime.Complies(mime.Multipart, r.ContentType()):
		return r.Post, nil
	default:
		return nil, status.ErrUnsupportedMediaType
	}
}

// ServerParams maps the message metadata onto the legacy server-variable
// surface.
func (r *Request) ServerParams() map[string]any {
	return map[string]any{
		"REMOTE_ADDR":        r.Remote.Addr().String(),
		"REMOTE_PORT":        int(r.Remote.Port()),
		"REQUEST_TIME":       r.Time.Unix(),
		"REQUEST_TIME_FLOAT": float64(r.Time.UnixNano()) / 1e9,
	}
}

// Reset clears every per-request input, keeping allocated tables for
// reuse. The upload registry honors the configured reset flag: with the
// flag off, uploads survive into the next request.
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Target = ""
	r.Path = ""
	r.Proto = proto.HTTP11
	r.Headers.Clear()
	r.Query.Clear()
	r.Post.Clear()
	r.Cookies.Clear()

	if r.cfg.Body.Uploads.Reset {
		r.Uploads.Clear()
	}
	r.Body = nil
	r.BodyValue = nil
	r.Remote = netip.AddrPort{}
	r.Time = time.Time{}
	r.msg = nil
}
