package models

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-album-center/internal/apperr"
	"go-album-center/internal/processor"
)

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))
	return buf.Bytes()
}

func TestDeriveFilename(t *testing.T) {
	assert.Equal(t, "My_Image.jpg", DeriveFilename("My Image", jpegBytes(t)))
	assert.Equal(t, "Ete_a_Sao_Paulo", FilesystemName("Été à São Paulo"))
	assert.Equal(t, "Strasse_AEro", FilesystemName("Straße Ærø"))
	assert.Equal(t, "a_b", FilesystemName("a/b"))
	assert.Equal(t, "_", FilesystemName(""))
}

func TestNewMedia(t *testing.T) {
	media, err := NewMedia("My Image", "someone", nil, "", nil, jpegBytes(t))
	require.NoError(t, err)
	assert.Equal(t, "My_Image.jpg", media.Filename)
	assert.Equal(t, Keywords{}, media.Keywords)
	assert.Equal(t, StatusPublished, media.Status)

	media, err = NewMedia("x", "someone", []string{"a"}, "explicit.png", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "explicit.png", media.Filename)

	media, err = NewMedia("x", "someone", nil, "../../escaped.png", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ".._.._escaped.png", media.Filename)
	assert.NotContains(t, media.Filename, "/")

	_, err = NewMedia("x", "", nil, "", nil, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = NewAlbum("", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestApplyWhitelist(t *testing.T) {
	album, err := NewAlbum("holidays", nil)
	require.NoError(t, err)

	require.NoError(t, album.Apply(map[string]any{"name": "trips", "status": "archived", "parent_id": float64(3)}))
	assert.Equal(t, "trips", album.Name)
	assert.Equal(t, StatusArchived, album.Status)
	require.NotNil(t, album.ParentID)
	assert.Equal(t, uint(3), *album.ParentID)

	require.NoError(t, album.Apply(map[string]any{"parent_id": nil}))
	assert.Nil(t, album.ParentID)

	assert.ErrorIs(t, album.Apply(map[string]any{"author": "x"}), apperr.ErrValidation)
	assert.ErrorIs(t, album.Apply(map[string]any{"status": "hidden"}), apperr.ErrValidation)
	assert.ErrorIs(t, album.Apply(map[string]any{"parent_id": 1.5}), apperr.ErrValidation)
	assert.ErrorIs(t, album.Apply(map[string]any{"name": ""}), apperr.ErrValidation)

	media, err := NewMedia("pic", "someone", nil, "pic.jpg", nil, nil)
	require.NoError(t, err)
	require.NoError(t, media.Apply(map[string]any{"keywords": []any{"a", "b"}, "author": "other"}))
	assert.Equal(t, Keywords{"a", "b"}, media.Keywords)
	assert.Equal(t, "other", media.Author)
	assert.ErrorIs(t, media.Apply(map[string]any{"filename": "x"}), apperr.ErrValidation)
	assert.ErrorIs(t, media.Apply(map[string]any{"keywords": []any{1}}), apperr.ErrValidation)
}

func TestCheckFields(t *testing.T) {
	full := map[string]any{"name": "n", "parent_id": nil, "status": "published"}
	assert.NoError(t, KindAlbum.CheckFields(full, true))
	assert.ErrorIs(t, KindAlbum.CheckFields(map[string]any{"name": "n"}, true), apperr.ErrValidation)
	assert.NoError(t, KindAlbum.CheckFields(map[string]any{"name": "n"}, false))
	assert.ErrorIs(t, KindAlbum.CheckFields(map[string]any{"id": 1}, false), apperr.ErrValidation)

	assert.Equal(t, []string{"name", "author", "keywords", "parent_id", "status"}, KindMedia.UpdateFields())
	assert.Equal(t, []string{"name", "author", "content", "parent_id"}, KindMedia.CreateFields())
}

func TestKeywordsColumn(t *testing.T) {
	var kw Keywords
	require.NoError(t, kw.Scan([]byte(`["sea","sun"]`)))
	assert.Equal(t, Keywords{"sea", "sun"}, kw)
	require.NoError(t, kw.Scan(nil))
	assert.Equal(t, Keywords{}, kw)

	value, err := Keywords{"a"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, value)
}

func TestNewDerivative(t *testing.T) {
	_, err := NewDerivative(1, processor.Operations{{Name: "blur"}})
	assert.ErrorIs(t, err, apperr.ErrUnsupportedOperation)

	d, err := NewDerivative(1, nil)
	require.NoError(t, err)
	assert.Equal(t, processor.Operations{}, d.Operations)
}
