package adapter

import (
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/ferry-web/ferry/config"
	"github.com/ferry-web/ferry/http"
	"github.com/ferry-web/ferry/http/cookie"
	"github.com/ferry-web/ferry/internal/qparams"
	"github.com/ferry-web/ferry/internal/strutil"
	"github.com/ferry-web/ferry/internal/urlencoded"
	"github.com/ferry-web/ferry/message"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

// Inbound translates an immutable inbound message into the native mutable
// request: filtered headers, verified cookies, parsed query and body,
// uploads and server parameters.
type Inbound struct {
	cfg     *config.Config
	trusted []netip.Prefix
	signer  cookie.Signer
	haveKey bool
	jar     cookie.Jar
	qbuff   []byte
}

// NewInbound parses the trusted-host list eagerly, so a bad entry
// surfaces at startup rather than on some unlucky request.
func NewInbound(cfg *config.Config) (*Inbound, error) {
	trusted, err := parseTrusted(cfg.Proxy.TrustedHosts)
	if err != nil {
		return nil, err
	}

	i := &Inbound{
		cfg:     cfg,
		trusted: trusted,
		jar:     cookie.NewJarPrealloc(cfg.Request.Prealloc.Cookies),
	}

	if cfg.Cookies.Validation && len(cfg.Cookies.ValidationKey) > 0 {
		signer, err := cookie.NewSigner(cfg.Cookies.ValidationKey)
		if err != nil {
			return nil, &ConfigurationError{Component: "request", Reason: err.Error()}
		}

		i.signer, i.haveKey = signer, true
	}

	return i, nil
}

func parseTrusted(hosts []string) ([]netip.Prefix, error) {
	trusted := make([]netip.Prefix, 0, len(hosts))

	for _, host := range hosts {
		if prefix, err := netip.ParsePrefix(host); err == nil {
			trusted = append(trusted, prefix)
			continue
		}

		addr, err := netip.ParseAddr(host)
		if err != nil {
			return nil, &ConfigurationError{
				Component: "request",
				Reason:    fmt.Sprintf("trusted host %q is neither an IP nor a CIDR block", host),
			}
		}

		trusted = append(trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return trusted, nil
}

// Attach populates the native request from the message. The native
// request is expected to arrive clean: either freshly constructed or
// reset at the previous detach.
func (i *Inbound) Attach(native *http.Request, msg *message.Request) error {
	native.Attach(msg)
	native.Method = msg.Method()
	native.Target = msg.Target()
	native.Proto = msg.Proto()

	origin := msg.Origin()
	native.Remote = origin.Remote
	native.Time = origin.Time

	i.headers(native, msg)
	i.target(native)

	if err := i.cookies(native, msg); err != nil {
		return err
	}

	if err := i.body(native, msg); err != nil {
		return err
	}

	return i.uploads(native, msg)
}

// headers copies the message headers into the native view, dropping the
// secure ones unless the peer is a trusted proxy. Names are normalized to
// Title-Case-with-hyphens; lookup stays case-insensitive either way.
func (i *Inbound) headers(native *http.Request, msg *message.Request) {
	trusted := i.trustedPeer(msg.Origin().Remote.Addr())

	for key, value := range msg.Headers() {
		if !trusted && i.secureHeader(key) {
			continue
		}

		native.Headers.Add(strutil.CanonicalHeader(key), value)
	}
}

func (i *Inbound) trustedPeer(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}

	addr = addr.Unmap()

	for _, prefix := range i.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

func (i *Inbound) secureHeader(key string) bool {
	for _, name := range i.cfg.Proxy.SecureHeaders {
		if strcomp.EqualFold(key, name) {
			return true
		}
	}

	return false
}

// target splits the request target into the decoded path and the parsed
// query table. Malformed encodings are routine client input: a broken
// path stays raw, a broken query yields an empty table.
func (i *Inbound) target(native *http.Request) {
	rawPath, rawQuery, _ := strings.Cut(native.Target, "?")

	if decoded, _, err := urlencoded.Decode(uf.S2B(rawPath), nil); err == nil {
		native.Path = string(decoded)
	} else {
		native.Path = rawPath
	}

	if len(rawQuery) == 0 {
		return
	}

	var err error
	i.qbuff, err = qparams.Parse(
		uf.S2B(rawQuery), i.qbuff[:0], qparams.Into(native.Query), urlencoded.ExtendedDecode, "",
	)
	if err != nil {
		native.Query.Clear()
	}
}

// cookies parses every Cookie header into the jar and installs verified
// values into the native table. With validation enabled, values whose
// signature does not check out are dropped silently: forged or stale
// cookies are routine, not errors. A missing key, in contrast, is a
// configuration error the moment cookies actually arrive.
func (i *Inbound) cookies(native *http.Request, msg *message.Request) error {
	i.jar.Clear()

	for value := range msg.HeaderValues("Cookie") {
		// a malformed cookie header is dropped, the remaining ones are kept
		_ = cookie.Parse(i.jar, value)
	}

	if i.jar.Empty() {
		return nil
	}

	if !i.cfg.Cookies.Validation {
		for name, value := range i.jar.Pairs() {
			native.Cookies.Add(name, value)
		}

		return nil
	}

	if !i.haveKey {
		return &ConfigurationError{
			Component: "request",
			Reason:    "cookie validation key must be configured with a secret key",
		}
	}

	for name, value := range i.jar.Pairs() {
		if verified, ok := i.signer.Verify(name, value); ok {
			native.Cookies.Add(name, verified)
		}
	}

	return nil
}

// body reads the message body whole and runs it through the parser
// registry: an exact match on the full Content-Type first, then on the
// bare media type, then the "*" wildcard. Unmatched types pass through
// raw.
func (i *Inbound) body(native *http.Request, msg *message.Request) error {
	raw, err := io.ReadAll(msg.Body())
	if err != nil {
		return &IOError{Op: "reading request body", Err: err}
	}

	native.Body = raw

	contentType := msg.Header("Content-Type")
	mediaType, _ := strutil.CutHeader(contentType)

	parser, selected, err := i.selectParser(contentType, mediaType)
	if err != nil {
		return err
	}
	if !selected {
		return nil
	}

	value, pairs, err := parser.Parse(raw)
	if err != nil {
		return &BodyParseError{MediaType: mediaType, Err: err}
	}

	native.BodyValue = value

	for _, pair := range pairs {
		native.Post.Add(pair.Key, pair.Value)
	}

	return nil
}

func (i *Inbound) selectParser(contentType, mediaType string) (config.BodyParser, bool, error) {
	parsers := i.cfg.Body.Parsers
	if len(parsers) == 0 {
		return nil, false, nil
	}

	for _, key := range []string{contentType, mediaType} {
		if parser, ok := parsers[key]; ok && len(key) > 0 {
			if parser == nil {
				return nil, false, &ConfigurationError{
					Component: "request",
					Reason:    fmt.Sprintf("the body parser for %s is nil", key),
				}
			}

			return parser, true, nil
		}
	}

	if parser, ok := parsers["*"]; ok {
		if parser == nil {
			return nil, false, &ConfigurationError{
				Component: "request",
				Reason:    "the fallback body parser is invalid",
			}
		}

		return parser, true, nil
	}

	return nil, false, nil
}

// uploads translates message upload parts into the native upload set.
// Exceeding the nesting limit or mixing file and directory shapes under
// one field path is structural corruption and fails the whole attach.
func (i *Inbound) uploads(native *http.Request, msg *message.Request) error {
	maxDepth := i.cfg.Body.Uploads.MaxDepth
	var added []*http.Upload

	for part := range msg.Uploads() {
		up := http.NewUpload(part.Field(), part.Filename(), part.MIME(), part.Size(), part.Err(), part.Open)

		if maxDepth > 0 && up.Depth() > maxDepth {
			return &StructuralError{
				Reason: fmt.Sprintf(
					"upload field %q nests %d levels deep, the limit is %d",
					up.Field, up.Depth(), maxDepth,
				),
			}
		}

		for _, prev := range added {
			if conflictingShapes(prev.Path(), up.Path()) {
				return &StructuralError{
					Reason: fmt.Sprintf(
						"upload fields %q and %q mix file and array shapes", prev.Field, up.Field,
					),
				}
			}
		}

		added = append(added, up)
	}

	native.Uploads.Add(added...)

	return nil
}

// conflictingShapes reports whether one structural path is a proper
// prefix of the other, which would make the same field both a file and a
// container.
func conflictingShapes(a, b []string) bool {
	if len(a) == len(b) {
		return false
	}

	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}

	for i := range short {
		if short[i] != long[i] {
			return false
		}
	}

	return true
}
