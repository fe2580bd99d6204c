package emitter

import (
	"io"

	"github.com/ferry-web/ferry/config"
	"github.com/ferry-web/ferry/http/byterange"
	"github.com/ferry-web/ferry/http/proto"
	"github.com/ferry-web/ferry/http/status"
	"github.com/ferry-web/ferry/message"
	"github.com/indigo-web/utils/strcomp"
)

type state uint8

const (
	stateNew state = iota
	stateEmitted
	stateFailed
)

// Emitter writes a finished outbound message to the wire: status line,
// headers, then the body. An emitter serves exactly one response; any
// further attempt is a protocol state violation, as is retrying after a
// failed emission that may have already put headers on the wire.
type Emitter struct {
	cfg   *config.Config
	w     io.Writer
	buff  []byte
	rbuff []byte
	state state
}

func NewEmitter(cfg *config.Config, w io.Writer) *Emitter {
	return &Emitter{cfg: cfg, w: w}
}

// Emit writes the response out. The body is suppressed for bodiless
// status codes. With a positive buffer size the body streams in chunks,
// honoring a parseable bytes Content-Range; otherwise the whole body is
// written in a single call.
func (e *Emitter) Emit(msg *message.Response) error {
	switch e.state {
	case stateEmitted:
		return &ProtocolStateError{Reason: "output already emitted"}
	case stateFailed:
		return &ProtocolStateError{Reason: "headers already sent"}
	}

	e.appendStatusLine(msg)
	e.appendHeaders(msg)
	e.crlf()

	if err := e.flush(); err != nil {
		e.state = stateFailed
		return &IOError{Op: "writing response", Err: err}
	}

	if status.Bodiless(msg.Code()) {
		e.state = stateEmitted
		return nil
	}

	if err := e.body(msg); err != nil {
		e.state = stateFailed
		return err
	}

	e.state = stateEmitted

	return nil
}

func (e *Emitter) body(msg *message.Response) error {
	stream := msg.Body()

	if e.cfg.Emitter.BufferSize <= 0 {
		return e.atomic(stream)
	}

	if cr, ok := byterange.Parse(msg.Header(byterange.Header)); ok {
		return e.ranged(stream, cr)
	}

	rewind(stream)

	return e.stream(stream)
}

// atomic reads the body whole and hands it to the writer in one call.
func (e *Emitter) atomic(body message.Stream) error {
	rewind(body)

	data, err := io.ReadAll(body)
	if err != nil {
		return &IOError{Op: "reading response body", Err: err}
	}

	if len(data) == 0 {
		return nil
	}

	if _, err = e.w.Write(data); err != nil {
		return &IOError{Op: "writing response", Err: err}
	}

	return nil
}

// ranged streams exactly the advertised span. A body that already is the
// extracted section (its known size equals the span) rewinds to its
// start; a full representation seeks to the range's first byte.
func (e *Emitter) ranged(body message.Stream, cr byterange.ContentRange) error {
	offset := cr.First
	if size, known := body.SizeHint(); known && size == cr.Span() {
		offset = 0
	}

	if err := position(body, offset); err != nil {
		return &IOError{Op: "positioning response body", Err: err}
	}

	return e.copyN(body, cr.Span())
}

// stream copies the body to the wire in buffer-sized chunks until EOF.
func (e *Emitter) stream(body message.Stream) error {
	buff := e.readbuff()

	for {
		n, err := body.Read(buff)
		if n > 0 {
			if _, werr := e.w.Write(buff[:n]); werr != nil {
				return &IOError{Op: "writing response", Err: werr}
			}
		}

		switch err {
		case nil:
		case io.EOF:
			return nil
		default:
			return &IOError{Op: "reading response body", Err: err}
		}
	}
}

// copyN streams exactly n bytes. A source ending early is a read
// failure: a partial range must never pass for a complete one.
func (e *Emitter) copyN(body message.Stream, n int64) error {
	buff := e.readbuff()

	for n > 0 {
		chunk := buff
		if n < int64(len(chunk)) {
			chunk = chunk[:n]
		}

		read, err := body.Read(chunk)
		if read > 0 {
			if _, werr := e.w.Write(chunk[:read]); werr != nil {
				return &IOError{Op: "writing response", Err: werr}
			}

			n -= int64(read)
		}

		switch err {
		case nil:
		case io.EOF:
			if n > 0 {
				return &IOError{Op: "reading response body", Err: io.ErrUnexpectedEOF}
			}

			return nil
		default:
			return &IOError{Op: "reading response body", Err: err}
		}
	}

	return nil
}

// position places the body at the absolute offset, by seeking when the
// body supports it and by discarding a prefix otherwise.
func position(body message.Stream, offset int64) error {
	if seeker, ok := body.(io.Seeker); ok {
		_, err := seeker.Seek(offset, io.SeekStart)
		return err
	}

	if offset == 0 {
		return nil
	}

	_, err := io.CopyN(io.Discard, body, offset)

	return err
}

// rewind repositions seekable bodies at their start; non-seekable ones
// stream from wherever they stand.
func rewind(body message.Stream) {
	if seeker, ok := body.(io.Seeker); ok {
		_, _ = seeker.Seek(0, io.SeekStart)
	}
}

func (e *Emitter) readbuff() []byte {
	if e.rbuff == nil {
		e.rbuff = make([]byte, e.cfg.Emitter.BufferSize)
	}

	return e.rbuff
}

// the worker host speaks HTTP/1.1
func (e *Emitter) appendStatusLine(msg *message.Response) {
	e.buff = append(e.buff, proto.HTTP11.String()...)
	e.sp()
	e.buff = append(e.buff, status.StringCode(msg.Code())...)
	e.sp()

	reason := msg.Reason()
	if len(reason) == 0 {
		reason = status.Text(msg.Code())
	}

	e.buff = append(e.buff, reason...)
	e.crlf()
}

// appendHeaders writes one line per Set-Cookie value and folds the
// values of every other repeated name onto a single comma-joined line.
func (e *Emitter) appendHeaders(msg *message.Response) {
	for key := range msg.HeaderKeys() {
		if strcomp.EqualFold(key, "Set-Cookie") {
			for value := range msg.HeaderValues(key) {
				e.buff = append(e.buff, key...)
				e.colonsp()
				e.buff = append(e.buff, value...)
				e.crlf()
			}

			continue
		}

		e.buff = append(e.buff, key...)
		e.colonsp()

		first := true
		for value := range msg.HeaderValues(key) {
			if !first {
				e.buff = append(e.buff, ',', ' ')
			}

			e.buff = append(e.buff, value...)
			first = false
		}

		e.crlf()
	}
}

func (e *Emitter) flush() (err error) {
	if len(e.buff) > 0 {
		_, err = e.w.Write(e.buff)
		e.buff = e.buff[:0]
	}

	return err
}

func (e *Emitter) sp() {
	e.buff = append(e.buff, ' ')
}

func (e *Emitter) colonsp() {
	e.buff = append(e.buff, ':', ' ')
}

const crlf = "\r\n"

func (e *Emitter) crlf() {
	e.buff = append(e.buff, crlf...)
}
