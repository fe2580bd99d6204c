package message

import (
	"io"
	"net/netip"
	"slices"
	"testing"
	"time"

	"github.com/ferry-web/ferry/http/method"
	"github.com/ferry-web/ferry/http/proto"
	"github.com/ferry-web/ferry/kv"
	"github.com/stretchr/testify/require"
)

func TestRequest(t *testing.T) {
	origin := Origin{
		Remote: netip.MustParseAddrPort("192.0.2.7:61337"),
		Time:   time.Date(2024, time.March, 8, 12, 0, 0, 0, time.UTC),
	}

	newRequest := func() *Request {
		headers := kv.New().
			Add("Host", "ferry.example").
			Add("Accept", "text/html").
			Add("Accept", "application/json")

		return NewRequest(
			method.POST, "/river/crossing?fare=2", proto.HTTP11,
			headers, NewBufferStream([]byte("tolls")), origin, nil,
		)
	}

	t.Run("accessors", func(t *testing.T) {
		request := newRequest()
		require.Equal(t, method.POST, request.Method())
		require.Equal(t, "/river/crossing?fare=2", request.Target())
		require.Equal(t, proto.HTTP11, request.Proto())
		require.Equal(t, "ferry.example", request.Header("host"))
		require.Equal(t, []string{"text/html", "application/json"},
			slices.Collect(request.HeaderValues("Accept")))
		require.True(t, request.HasHeader("Accept"))
		require.False(t, request.HasHeader("Authorization"))
		require.Equal(t, origin, request.Origin())
		require.Zero(t, request.UploadCount())

		body, err := io.ReadAll(request.Body())
		require.NoError(t, err)
		require.Equal(t, "tolls", string(body))
	})

	t.Run("nil defaults", func(t *testing.T) {
		request := NewRequest(method.GET, "/", proto.HTTP11, nil, nil, Origin{}, nil)
		require.False(t, request.HasHeader("Host"))
		size, known := request.Body().SizeHint()
		require.True(t, known)
		require.Zero(t, size)
	})

	t.Run("with header leaves the original intact", func(t *testing.T) {
		request := newRequest()
		modified := request.WithHeader("Accept", "text/plain")
		require.Equal(t, []string{"text/plain"}, slices.Collect(modified.HeaderValues("Accept")))
		require.Equal(t, []string{"text/html", "application/json"},
			slices.Collect(request.HeaderValues("Accept")))
	})

	t.Run("with added header appends", func(t *testing.T) {
		request := newRequest().WithAddedHeader("Accept", "text/plain")
		require.Equal(t, []string{"text/html", "application/json", "text/plain"},
			slices.Collect(request.HeaderValues("Accept")))
	})

	t.Run("without header", func(t *testing.T) {
		request := newRequest()
		modified := request.WithoutHeader("accept")
		require.False(t, modified.HasHeader("Accept"))
		require.True(t, request.HasHeader("Accept"))
	})

	t.Run("derived copies never alias", func(t *testing.T) {
		request := newRequest()
		first := request.WithHeader("X-Stage", "first")
		second := first.WithHeader("X-Stage", "second")
		third := second.WithoutHeader("X-Stage")

		require.False(t, request.HasHeader("X-Stage"))
		require.Equal(t, "first", first.Header("X-Stage"))
		require.Equal(t, "second", second.Header("X-Stage"))
		require.False(t, third.HasHeader("X-Stage"))
	})

	t.Run("with method and target", func(t *testing.T) {
		request := newRequest().
			WithMethod(method.PUT).
			WithTarget("/river").
			WithProto(proto.HTTP2)
		require.Equal(t, method.PUT, request.Method())
		require.Equal(t, "/river", request.Target())
		require.Equal(t, proto.HTTP2, request.Proto())
	})

	t.Run("with body replaces the stream only", func(t *testing.T) {
		request := newRequest()
		modified := request.WithBody(NewBufferStream([]byte("fresh")))

		body, err := io.ReadAll(modified.Body())
		require.NoError(t, err)
		require.Equal(t, "fresh", string(body))

		body, err = io.ReadAll(request.Body())
		require.NoError(t, err)
		require.Equal(t, "tolls", string(body))
	})

	t.Run("uploads", func(t *testing.T) {
		uploads := []UploadedFile{
			NewUploadedFile("avatar", "me.png", "image/png", 4096, UploadOK, nil),
			NewUploadedFile("backup", "all.zip", "application/zip", 0, UploadTooLarge, nil),
		}
		request := newRequest().WithUploads(uploads)
		require.Equal(t, 2, request.UploadCount())

		collected := slices.Collect(request.Uploads())
		require.Equal(t, "avatar", collected[0].Field())
		require.Equal(t, UploadTooLarge, collected[1].Err())
	})
}

func TestUploadedFile(t *testing.T) {
	t.Run("open succeeded upload", func(t *testing.T) {
		upload := NewUploadedFile("doc", "a.txt", "text/plain", 0, UploadOK, nil)
		content, err := upload.Open()
		require.NoError(t, err)
		defer content.Close()

		data, err := io.ReadAll(content)
		require.NoError(t, err)
		require.Empty(t, data)
	})

	t.Run("open failed upload", func(t *testing.T) {
		upload := NewUploadedFile("doc", "a.txt", "text/plain", 0, UploadPartial, nil)
		_, err := upload.Open()
		require.EqualError(t, err, "upload failed: the file was only partially received")
	})
}
