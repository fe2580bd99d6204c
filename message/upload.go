package message

import (
	"bytes"
	"fmt"
	"io"
)

// UploadError mirrors the per-file upload outcome reported by host
// runtimes. The zero value means the upload completed.
type UploadError uint8

const (
	UploadOK UploadError = iota
	UploadTooLarge
	UploadPartial
	UploadMissing
	UploadNoTmpDir
	UploadCantWrite
)

func (e UploadError) String() string {
	switch e {
	case UploadOK:
		return "ok"
	case UploadTooLarge:
		return "the file exceeds the size limit"
	case UploadPartial:
		return "the file was only partially received"
	case UploadMissing:
		return "no file was received"
	case UploadNoTmpDir:
		return "no temporary directory to store the file"
	case UploadCantWrite:
		return "the file could not be written to disk"
	default:
		return "unknown upload error"
	}
}

// OpenFunc opens an upload's content for reading. Each call yields an
// independent reader.
type OpenFunc func() (io.ReadCloser, error)

// UploadedFile is a single file the host runtime decoded from the request
// body. Metadata stays accessible even when the upload failed; only Open
// is gated on success.
type UploadedFile struct {
	field    string
	filename string
	mime     string
	size     int64
	err      UploadError
	open     OpenFunc
}

func NewUploadedFile(
	field, filename, mime string, size int64, uploadErr UploadError, open OpenFunc,
) UploadedFile {
	return UploadedFile{field, filename, mime, size, uploadErr, open}
}

// Field returns the form field name the file arrived under, including the
// bracketed path for nested forms.
func (u UploadedFile) Field() string {
	return u.field
}

// Filename returns the client-supplied file name. It is untrusted input.
func (u UploadedFile) Filename() string {
	return u.filename
}

// MIME returns the client-supplied media type. It is untrusted input.
func (u UploadedFile) MIME() string {
	return u.mime
}

func (u UploadedFile) Size() int64 {
	return u.size
}

func (u UploadedFile) Err() UploadError {
	return u.err
}

// Open opens the upload content. Failed uploads cannot be opened; their
// error code is reported instead.
func (u UploadedFile) Open() (io.ReadCloser, error) {
	if u.err != UploadOK {
		return nil, fmt.Errorf("upload failed: %s", u.err)
	}

	if u.open == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	return u.open()
}
