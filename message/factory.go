package message

import (
	"io"

	"github.com/ferry-web/ferry/http/method"
	"github.com/ferry-web/ferry/http/proto"
	"github.com/ferry-web/ferry/http/status"
	"github.com/ferry-web/ferry/kv"
)

// Factory constructs the immutable messages the adapters exchange with
// the host runtime. Hosts substitute their own implementation to control
// allocation or to back streams with runtime-owned resources.
type Factory interface {
	NewRequest(
		m method.Method,
		target string,
		p proto.Proto,
		headers *kv.Storage,
		body Stream,
		origin Origin,
		uploads []UploadedFile,
	) *Request
	NewResponse(code status.Code, reason status.Status, headers *kv.Storage, body Stream) *Response
	NewBufferStream(data []byte) Stream
	NewReaderStream(r io.Reader) Stream
	NewBoundedStream(src io.ReadSeeker, offset, length int64) (Stream, error)
	NewUploadedFile(
		field, filename, mime string, size int64, uploadErr UploadError, open OpenFunc,
	) UploadedFile
}

// NewFactory returns the default in-memory factory, backing messages with
// plain buffers and readers.
func NewFactory() Factory {
	return basicFactory{}
}

type basicFactory struct{}

func (basicFactory) NewRequest(
	m method.Method,
	target string,
	p proto.Proto,
	headers *kv.Storage,
	body Stream,
	origin Origin,
	uploads []UploadedFile,
) *Request {
	return NewRequest(m, target, p, headers, body, origin, uploads)
}

func (basicFactory) NewResponse(
	code status.Code, reason status.Status, headers *kv.Storage, body Stream,
) *Response {
	return NewResponse(code, reason, headers, body)
}

func (basicFactory) NewBufferStream(data []byte) Stream {
	return NewBufferStream(data)
}

func (basicFactory) NewReaderStream(r io.Reader) Stream {
	return NewReaderStream(r)
}

func (basicFactory) NewBoundedStream(src io.ReadSeeker, offset, length int64) (Stream, error) {
	return NewBoundedStream(src, offset, length)
}

func (basicFactory) NewUploadedFile(
	field, filename, mime string, size int64, uploadErr UploadError, open OpenFunc,
) UploadedFile {
	return NewUploadedFile(field, filename, mime, size, uploadErr, open)
}
