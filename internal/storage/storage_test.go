package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/pkg/models"
)

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "files")
	s, err := New(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(s.Dir()))
	assert.DirExists(t, s.Dir())
}

func TestNewFailsOnUncreatableDir(t *testing.T) {
	// A regular file in the way makes MkdirAll fail.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	s0, err := New(base)
	require.NoError(t, err)
	_, _, err = s0.Save("blocker", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = New(filepath.Join(blocker, "sub"))
	assert.Error(t, err)
}

func TestFilenameDeterministicShape(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	name := s.Filename(models.AttachmentPhoto, 42, 7, "AQADuniq", "jpg")
	assert.True(t, strings.HasPrefix(name, "photo_42_7_AQADuniq_"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))
}

func TestFilenameSanitizesUniqueID(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	name := s.Filename(models.AttachmentDocument, 1, 2, "../evil/id", "pdf")
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "..")
}

func TestSave(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	path, n, err := s.Save("voice_1_2_u_3.ogg", strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, int64(len("audio-bytes")), n)
	assert.FileExists(t, path)
}

func TestFindExistingIgnoresTimestamp(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	// Same attachment saved earlier under a different timestamp.
	saved, _, err := s.Save("photo_42_7_uniq_1111111111.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	path, size, ok := s.FindExisting(models.AttachmentPhoto, 42, 7, "uniq")
	require.True(t, ok)
	assert.Equal(t, saved, path)
	assert.Equal(t, int64(len("jpeg-bytes")), size)

	_, _, ok = s.FindExisting(models.AttachmentPhoto, 42, 8, "uniq")
	assert.False(t, ok)
	_, _, ok = s.FindExisting(models.AttachmentVoice, 42, 7, "uniq")
	assert.False(t, ok)
}
