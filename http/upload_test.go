package http

import (
	"testing"

	"github.com/ferry-web/ferry/message"
	"github.com/stretchr/testify/require"
)

func TestSplitField(t *testing.T) {
	for _, tc := range []struct {
		name  string
		field string
		want  []string
	}{
		{"plain", "avatar", []string{"avatar"}},
		{"nested", "docs[legal][scan]", []string{"docs", "legal", "scan"}},
		{"array marker", "album[photos][]", []string{"album", "photos", ""}},
		{"inner marker", "a[][b]", []string{"a", "", "b"}},
		{"unbalanced is literal", "a[b", []string{"a[b"}},
		{"trailing garbage is literal", "a[b]c", []string{"a[b]c"}},
		{"nested open is literal", "a[b[c]]", []string{"a[b[c]]"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, splitField(tc.field))
		})
	}
}

func TestUpload(t *testing.T) {
	t.Run("depth counts markers", func(t *testing.T) {
		require.Equal(t, 1, NewUpload("avatar", "", "", 0, message.UploadOK, nil).Depth())
		require.Equal(t, 3, NewUpload("album[photos][]", "", "", 0, message.UploadOK, nil).Depth())
	})

	t.Run("path strips trailing markers", func(t *testing.T) {
		u := NewUpload("album[photos][]", "", "", 0, message.UploadOK, nil)
		require.Equal(t, []string{"album", "photos"}, u.Path())
	})

	t.Run("failed upload cannot be opened", func(t *testing.T) {
		u := NewUpload("doc", "a.txt", "text/plain", 0, message.UploadMissing, nil)
		_, err := u.Open()
		require.Error(t, err)
	})
}

func TestUploadSet(t *testing.T) {
	newSet := func() *UploadSet {
		set := NewUploadSet()
		set.Add(
			NewUpload("avatar", "me.png", "image/png", 100, message.UploadOK, nil),
			NewUpload("album[photos][]", "a.jpg", "image/jpeg", 200, message.UploadOK, nil),
			NewUpload("album[photos][]", "b.jpg", "image/jpeg", 300, message.UploadOK, nil),
			NewUpload("album[cover]", "c.jpg", "image/jpeg", 400, message.UploadOK, nil),
		)

		return set
	}

	t.Run("exact", func(t *testing.T) {
		matched := newSet().Get("avatar")
		require.Len(t, matched, 1)
		require.Equal(t, "me.png", matched[0].Filename)
	})

	t.Run("prefix matches the subtree", func(t *testing.T) {
		require.Len(t, newSet().Get("album"), 3)
		require.Len(t, newSet().Get("album[photos]"), 2)
	})

	t.Run("array marker in the query is ignored", func(t *testing.T) {
		require.Len(t, newSet().Get("album[photos][]"), 2)
	})

	t.Run("no match", func(t *testing.T) {
		require.Nil(t, newSet().Get("resume"))
		require.Nil(t, newSet().First("resume"))
	})

	t.Run("first", func(t *testing.T) {
		first := newSet().First("album[photos]")
		require.NotNil(t, first)
		require.Equal(t, "a.jpg", first.Filename)
	})

	t.Run("all preserves arrival order", func(t *testing.T) {
		var names []string
		for u := range newSet().All() {
			names = append(names, u.Filename)
		}
		require.Equal(t, []string{"me.png", "a.jpg", "b.jpg", "c.jpg"}, names)
	})

	t.Run("clear", func(t *testing.T) {
		set := newSet()
		set.Clear()
		require.Zero(t, set.Len())
		require.Nil(t, set.Get("avatar"))
	})
}
