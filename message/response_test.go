package message

import (
	"io"
	"slices"
	"testing"

	"github.com/ferry-web/ferry/http/status"
	"github.com/ferry-web/ferry/kv"
	"github.com/stretchr/testify/require"
)

func TestResponse(t *testing.T) {
	newResponse := func() *Response {
		headers := kv.New().
			Add("Content-Type", "text/html").
			Add("Vary", "Accept").
			Add("Vary", "Accept-Encoding")

		return NewResponse(status.OK, "OK", headers, NewBufferStream([]byte("<p>hi</p>")))
	}

	t.Run("accessors", func(t *testing.T) {
		response := newResponse()
		require.Equal(t, status.OK, response.Code())
		require.Equal(t, status.Status("OK"), response.Reason())
		require.Equal(t, "text/html", response.Header("content-type"))
		require.Equal(t, []string{"Accept", "Accept-Encoding"},
			slices.Collect(response.HeaderValues("Vary")))

		body, err := io.ReadAll(response.Body())
		require.NoError(t, err)
		require.Equal(t, "<p>hi</p>", string(body))
	})

	t.Run("reason stays verbatim", func(t *testing.T) {
		response := NewResponse(status.Created, "", nil, nil)
		require.Empty(t, response.Reason())
	})

	t.Run("with status leaves the original intact", func(t *testing.T) {
		response := newResponse()
		modified := response.WithStatus(status.NotFound, "Gone Fishing")
		require.Equal(t, status.NotFound, modified.Code())
		require.Equal(t, status.Status("Gone Fishing"), modified.Reason())
		require.Equal(t, status.OK, response.Code())
	})

	t.Run("header modifiers never alias", func(t *testing.T) {
		response := newResponse()
		replaced := response.WithHeader("Vary", "Origin")
		appended := response.WithAddedHeader("Vary", "Cookie")
		removed := response.WithoutHeader("vary")

		require.Equal(t, []string{"Accept", "Accept-Encoding"},
			slices.Collect(response.HeaderValues("Vary")))
		require.Equal(t, []string{"Origin"}, slices.Collect(replaced.HeaderValues("Vary")))
		require.Equal(t, []string{"Accept", "Accept-Encoding", "Cookie"},
			slices.Collect(appended.HeaderValues("Vary")))
		require.False(t, removed.HasHeader("Vary"))
	})

	t.Run("with body", func(t *testing.T) {
		response := newResponse().WithBody(NewBufferStream([]byte("fresh")))
		body, err := io.ReadAll(response.Body())
		require.NoError(t, err)
		require.Equal(t, "fresh", string(body))
	})
}

func TestFactory(t *testing.T) {
	factory := NewFactory()

	response := factory.NewResponse(status.Teapot, "I'm a teapot", nil, nil)
	require.Equal(t, status.Teapot, response.Code())

	s := factory.NewBufferStream([]byte("abc"))
	size, known := s.SizeHint()
	require.True(t, known)
	require.Equal(t, int64(3), size)
}
