package message

import (
	"bytes"
	"errors"
	"io"
)

// Stream is a readable message body. Bodies constructed from buffers and
// bounded sections additionally support io.Seeker, letting consumers
// rewind or skip; plain reader bodies do not.
type Stream interface {
	io.Reader
	// SizeHint returns the total number of bytes the stream carries and
	// whether that is known in advance.
	SizeHint() (n int64, known bool)
}

var (
	errWhence = errors.New("seek: invalid whence")
	errOffset = errors.New("seek: negative position")
)

// EmptyStream returns a zero-length seekable stream.
func EmptyStream() Stream {
	return NewBufferStream(nil)
}

// NewBufferStream returns a seekable stream over an in-memory buffer.
func NewBufferStream(data []byte) Stream {
	return &bufferStream{bytes.NewReader(data), int64(len(data))}
}

type bufferStream struct {
	*bytes.Reader
	size int64
}

func (b *bufferStream) SizeHint() (int64, bool) {
	return b.size, true
}

// NewReaderStream wraps an arbitrary reader into a stream of unknown size.
// If the reader seeks, so does the returned stream.
func NewReaderStream(r io.Reader) Stream {
	if rs, ok := r.(io.ReadSeeker); ok {
		return &seekableReaderStream{rs}
	}

	return &readerStream{r}
}

type readerStream struct {
	r io.Reader
}

func (r *readerStream) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r *readerStream) SizeHint() (int64, bool) {
	return 0, false
}

type seekableReaderStream struct {
	io.ReadSeeker
}

func (seekableReaderStream) SizeHint() (int64, bool) {
	return 0, false
}

// NewBoundedStream returns a seekable stream over the
// [offset, offset+length) section of src. The source cursor belongs to the
// stream afterwards: the source must not be read or sought elsewhere while
// the stream is in use. Sources ending before the section does surface
// io.ErrUnexpectedEOF instead of a silent short read.
func NewBoundedStream(src io.ReadSeeker, offset, length int64) (Stream, error) {
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	return &boundedStream{src: src, base: offset, length: length}, nil
}

type boundedStream struct {
	src    io.ReadSeeker
	base   int64
	pos    int64
	length int64
}

func (b *boundedStream) Read(p []byte) (n int, err error) {
	if b.pos >= b.length {
		return 0, io.EOF
	}

	if rest := b.length - b.pos; int64(len(p)) > rest {
		p = p[:rest]
	}

	n, err = b.src.Read(p)
	b.pos += int64(n)

	if err == io.EOF && b.pos < b.length {
		err = io.ErrUnexpectedEOF
	}

	return n, err
}

func (b *boundedStream) Seek(offset int64, whence int) (int64, error) {
	var target int64

	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = b.pos + offset
	case io.SeekEnd:
		target = b.length + offset
	default:
		return 0, errWhence
	}

	if target < 0 {
		return 0, errOffset
	}

	if _, err := b.src.Seek(b.base+target, io.SeekStart); err != nil {
		return 0, err
	}

	b.pos = target

	return target, nil
}

func (b *boundedStream) SizeHint() (int64, bool) {
	return b.length, true
}
