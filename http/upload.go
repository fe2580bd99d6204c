package http

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/ferry-web/ferry/message"
)

// Upload is the native view of one uploaded file, addressed by a
// bracketed form field name the way classic form runtimes do it:
// "avatar", "album[photos][]", "docs[legal][scan]".
type Upload struct {
	// Field is the form field name as it arrived, brackets included.
	Field string
	// Filename is the client-supplied file name. Untrusted input.
	Filename string
	// MIME is the client-supplied media type. Untrusted input.
	MIME string
	// Size is the received size in bytes.
	Size int64
	// Err is the per-file outcome reported by the host runtime. Zero value
	// means the upload completed.
	Err message.UploadError

	segments []string
	open     message.OpenFunc
}

func NewUpload(
	field, filename, mediaType string, size int64, uploadErr message.UploadError, open message.OpenFunc,
) *Upload {
	return &Upload{
		Field:    field,
		Filename: filename,
		MIME:     mediaType,
		Size:     size,
		Err:      uploadErr,
		segments: splitField(field),
		open:     open,
	}
}

// Depth is the nesting level of the field name, trailing array markers
// included: "avatar" is 1, "album[photos][]" is 3.
func (u *Upload) Depth() int {
	return len(u.segments)
}

// Path is the structural path of the field: the bracket segments with
// trailing array markers stripped. "album[photos][]" and "album[photos]"
// share the path [album photos].
func (u *Upload) Path() []string {
	end := len(u.segments)
	for end > 0 && u.segments[end-1] == "" {
		end--
	}

	return u.segments[:end]
}

// Open opens the upload content. Failed uploads cannot be opened; their
// error code is reported instead.
func (u *Upload) Open() (io.ReadCloser, error) {
	if u.Err != message.UploadOK {
		return nil, fmt.Errorf("upload failed: %s", u.Err)
	}

	if u.open == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	return u.open()
}

// splitField parses a bracketed field name into its segments. Array
// markers ([]) become empty segments. Malformed names (unbalanced or
// trailing garbage) degrade to a single literal segment instead of
// failing, as field names are client input.
func splitField(field string) []string {
	head, rest, found := strings.Cut(field, "[")
	if !found {
		return []string{field}
	}

	segments := []string{head}

	for {
		seg, tail, closed := strings.Cut(rest, "]")
		if !closed || strings.Contains(seg, "[") {
			return []string{field}
		}

		segments = append(segments, seg)

		if tail == "" {
			return segments
		}

		if !strings.HasPrefix(tail, "[") {
			return []string{field}
		}

		rest = tail[1:]
	}
}

// UploadSet is the per-request collection of uploads in arrival order.
type UploadSet struct {
	uploads []*Upload
}

func NewUploadSet() *UploadSet {
	return &UploadSet{}
}

// Add appends uploads without validating their shape. The inbound adapter
// is the one responsible for rejecting conflicting field structures.
func (s *UploadSet) Add(uploads ...*Upload) {
	s.uploads = append(s.uploads, uploads...)
}

// Get returns all uploads at or under the given field: Get("album")
// matches "album", "album[photos]" and "album[photos][]" alike. The
// result preserves arrival order and is nil when nothing matches.
func (s *UploadSet) Get(field string) (matched []*Upload) {
	want := (&Upload{segments: splitField(field)}).Path()

	for _, u := range s.uploads {
		if isPathPrefix(want, u.Path()) {
			matched = append(matched, u)
		}
	}

	return matched
}

// First returns the first upload matching the field, nil when absent.
func (s *UploadSet) First(field string) *Upload {
	if matched := s.Get(field); len(matched) > 0 {
		return matched[0]
	}

	return nil
}

// All iterates over every upload in arrival order.
func (s *UploadSet) All() iter.Seq[*Upload] {
	return func(yield func(*Upload) bool) {
		for _, u := range s.uploads {
			if !yield(u) {
				return
			}
		}
	}
}

func (s *UploadSet) Len() int {
	return len(s.uploads)
}

func (s *UploadSet) Clear() {
	s.uploads = s.uploads[:0]
}

func isPathPrefix(prefix, path []string) bool {
	if len(prefix) > len(path) {
		return false
	}

	for i := range prefix {
		if prefix[i] != path[i] {
			return false
		}
	}

	return true
}
