package strutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLStripWS(t *testing.T) {
	require.Equal(t, "value", LStripWS("  \tvalue"))
	require.Equal(t, "", LStripWS(" \t"))
}

func TestCutHeader(t *testing.T) {
	value, params := CutHeader("multipart/form-data; boundary=xyz")
	require.Equal(t, "multipart/form-data", value)
	require.Equal(t, "boundary=xyz", params)

	value, params = CutHeader("text/html")
	require.Equal(t, "text/html", value)
	require.Empty(t, params)
}

func TestCanonicalHeader(t *testing.T) {
	for _, tc := range []struct{ In, Want string }{
		{"content-type", "Content-Type"},
		{"CONTENT-TYPE", "Content-Type"},
		{"Content-Type", "Content-Type"},
		{"x-forwarded-for", "X-Forwarded-For"},
		{"eTag", "Etag"},
		{"a", "A"},
		{"", ""},
	} {
		require.Equal(t, tc.Want, CanonicalHeader(tc.In), tc.In)
	}

	t.Run("no allocation for canonical names", func(t *testing.T) {
		name := "Content-Type"
		require.Equal(t, name, CanonicalHeader(name))
	})
}
