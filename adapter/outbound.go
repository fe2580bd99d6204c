package adapter

import (
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/ferry-web/ferry/config"
	"github.com/ferry-web/ferry/http"
	"github.com/ferry-web/ferry/http/cookie"
	"github.com/ferry-web/ferry/internal/response"
	"github.com/ferry-web/ferry/kv"
	"github.com/ferry-web/ferry/message"
)

const cookieTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Outbound converts the native mutable response into an immutable outbound
// message: status and headers verbatim, cookies rendered and signed, the
// body taken from the file-stream descriptor when one is set.
type Outbound struct {
	cfg     *config.Config
	factory message.Factory
	signer  cookie.Signer
	haveKey bool
	buff    []byte
	now     func() time.Time
}

// NewOutbound validates the cookie signing setup eagerly when a key is
// configured. An empty key with validation enabled is not an error here:
// it only becomes one once a cookie actually needs signing.
func NewOutbound(cfg *config.Config, factory message.Factory) (*Outbound, error) {
	if factory == nil {
		factory = message.NewFactory()
	}

	o := &Outbound{cfg: cfg, factory: factory, now: time.Now}

	if cfg.Cookies.Validation && len(cfg.Cookies.ValidationKey) > 0 {
		signer, err := cookie.NewSigner(cfg.Cookies.ValidationKey)
		if err != nil {
			return nil, &ConfigurationError{Component: "response", Reason: err.Error()}
		}

		o.signer, o.haveKey = signer, true
	}

	return o, nil
}

// Convert builds the outbound message. The native response is left
// untouched and stays owned by the framework.
func (o *Outbound) Convert(native *http.Response) (*message.Response, error) {
	fields := native.Reveal()

	headers := kv.NewPrealloc(fields.Headers.Len() + len(fields.Cookies))
	for key, value := range fields.Headers.Pairs() {
		headers.Add(key, value)
	}

	if err := o.appendCookies(headers, fields.Cookies); err != nil {
		return nil, err
	}

	body, err := o.body(fields)
	if err != nil {
		return nil, err
	}

	return o.factory.NewResponse(fields.Code, fields.Reason, headers, body), nil
}

// appendCookies renders one Set-Cookie header per cookie with a non-empty
// value. Empty values are skipped entirely: a cookie kept around by the
// framework but never given a value must not turn into a removal.
func (o *Outbound) appendCookies(headers *kv.Storage, cookies []cookie.Cookie) error {
	for _, c := range cookies {
		if len(c.Value) == 0 {
			continue
		}

		value := c.Value

		if o.cfg.Cookies.Validation && !c.Expiry.IsNoValidate() {
			if !o.haveKey {
				return &ConfigurationError{
					Component: "response",
					Reason:    "cookie validation key must be configured with a secret key",
				}
			}

			value = o.signer.Sign(c.Name, value)
		}

		o.buff = appendSetCookie(o.buff[:0], c, value, o.now())
		headers.Add("Set-Cookie", string(o.buff))
	}

	return nil
}

// appendSetCookie renders the attribute sequence in the fixed order
// name=value, Expires, Max-Age, Path, Domain, Secure, HttpOnly, SameSite,
// omitting inapplicable attributes. Session cookies carry no
// Expires/Max-Age at all, and Max-Age is clamped at zero so a cookie
// expired in the past never renders a negative age.
func appendSetCookie(b []byte, c cookie.Cookie, value string, now time.Time) []byte {
	b = append(b, c.Name...)
	b = append(b, '=')
	b = append(b, value...)

	if !c.Expiry.IsSession() {
		b = append(b, "; Expires="...)
		b = c.Expiry.Time().UTC().AppendFormat(b, cookieTimeFormat)
		b = append(b, "; Max-Age="...)
		b = strconv.AppendInt(b, max(0, c.Expiry.Unix()-now.Unix()), 10)
	}

	if len(c.Path) > 0 {
		b = append(b, "; Path="...)
		b = append(b, c.Path...)
	}

	if len(c.Domain) > 0 {
		b = append(b, "; Domain="...)
		b = append(b, c.Domain...)
	}

	if c.Secure {
		b = append(b, "; Secure"...)
	}

	if c.HttpOnly {
		b = append(b, "; HttpOnly"...)
	}

	if len(c.SameSite) > 0 {
		b = append(b, "; SameSite="...)
		b = append(b, c.SameSite...)
	}

	return b
}

// body picks the message body source. A file-stream descriptor always
// wins over the in-memory buffer, even when both are set.
func (o *Outbound) body(fields *response.Fields) (message.Stream, error) {
	if fields.Stream == nil {
		if len(fields.Body) == 0 {
			return o.factory.NewBufferStream(nil), nil
		}

		// the message must not observe later mutations of the native buffer
		return o.factory.NewBufferStream(slices.Clone(fields.Body)), nil
	}

	fs := fields.Stream

	if fs.Handle == nil {
		return nil, &StructuralError{Reason: "file stream descriptor carries no handle"}
	}

	// a dead handle (say, a file closed early) must be caught before
	// emission starts, not midway through the response
	if _, err := fs.Handle.Seek(0, io.SeekCurrent); err != nil {
		return nil, &StructuralError{Reason: "file stream handle is not readable: " + err.Error()}
	}

	if fs.Begin < 0 || fs.Begin > fs.End {
		return nil, &RangeError{Begin: fs.Begin, End: fs.End}
	}

	stream, err := o.factory.NewBoundedStream(fs.Handle, fs.Begin, fs.End-fs.Begin+1)
	if err != nil {
		return nil, &IOError{Op: "positioning file stream", Err: err}
	}

	return stream, nil
}
