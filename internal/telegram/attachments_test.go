package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/logger"
	"bifrost/internal/storage"
	"bifrost/pkg/models"
)

func TestBestPhotoLargestArea(t *testing.T) {
	sizes := []telego.PhotoSize{
		{FileID: "small", Width: 100, Height: 100},
		{FileID: "large", Width: 800, Height: 600},
		{FileID: "medium", Width: 400, Height: 400},
	}
	assert.Equal(t, "large", BestPhoto(sizes).FileID)
}

func TestBestPhotoTieBrokenBySize(t *testing.T) {
	sizes := []telego.PhotoSize{
		{FileID: "lean", Width: 640, Height: 480, FileSize: 40_000},
		{FileID: "heavy", Width: 640, Height: 480, FileSize: 90_000},
	}
	assert.Equal(t, "heavy", BestPhoto(sizes).FileID)
}

func TestBestPhotoSingleVariant(t *testing.T) {
	sizes := []telego.PhotoSize{{FileID: "only", Width: 90, Height: 90}}
	assert.Equal(t, "only", BestPhoto(sizes).FileID)
}

func TestExtractFilesPhotoCollapsesToBest(t *testing.T) {
	msg := &telego.Message{
		Photo: []telego.PhotoSize{
			{FileID: "thumb", FileUniqueID: "u1", Width: 90, Height: 90},
			{FileID: "full", FileUniqueID: "u2", Width: 1280, Height: 960},
		},
	}

	refs := extractFiles(msg)
	require.Len(t, refs, 1)
	assert.Equal(t, "full", refs[0].fileID)
	assert.Equal(t, models.AttachmentPhoto, refs[0].kind)
	assert.Equal(t, 1280, refs[0].meta.Width)
}

func TestExtractFilesMultipleKinds(t *testing.T) {
	msg := &telego.Message{
		Voice: &telego.Voice{FileID: "v1", FileUniqueID: "uv", Duration: 12, MimeType: "audio/ogg"},
		Document: &telego.Document{
			FileID:       "d1",
			FileUniqueID: "ud",
			FileName:     "report.pdf",
			MimeType:     "application/pdf",
		},
	}

	refs := extractFiles(msg)
	require.Len(t, refs, 2)
	assert.Equal(t, models.AttachmentVoice, refs[0].kind)
	assert.Equal(t, 12, refs[0].meta.Duration)
	assert.Equal(t, models.AttachmentDocument, refs[1].kind)
	assert.Equal(t, "report.pdf", refs[1].meta.FileName)
}

func TestExtractFilesNone(t *testing.T) {
	refs := extractFiles(&telego.Message{Text: "just text"})
	assert.Empty(t, refs)
}

func TestDownloadReusesStoredFile(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	// A copy from an earlier delivery of the same update.
	saved, _, err := store.Save("photo_42_7_uniq_1700000000.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	// nil bot: a reused file must not touch the API at all.
	d := NewDownloader(nil, store, nil, logger.NopLogger())
	ref, err := d.download(context.Background(), 42, 7, fileRef{
		fileID:   "file-id",
		uniqueID: "uniq",
		kind:     models.AttachmentPhoto,
		ext:      "jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, saved, ref.LocalPath)
	assert.Equal(t, int64(len("jpeg-bytes")), ref.SizeBytes)
	assert.Equal(t, models.AttachmentPhoto, ref.Kind)
}
