package telegram

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/mymmrac/telego"

	"bifrost/internal/constants"
	"bifrost/internal/logger"
	"bifrost/internal/storage"
	"bifrost/pkg/metrics"
	"bifrost/pkg/models"
)

// Downloader fetches message attachments through the Bot API file
// endpoint and persists them locally. Downloads for one message run
// sequentially to bound memory and API pressure.
type Downloader struct {
	bot        *telego.Bot
	store      *storage.Storage
	httpClient *http.Client
	logger     logger.Logger
}

func NewDownloader(bot *telego.Bot, store *storage.Storage, httpClient *http.Client, log logger.Logger) *Downloader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DownloadTimeout}
	}
	return &Downloader{
		bot:        bot,
		store:      store,
		httpClient: httpClient,
		logger:     log,
	}
}

// fileRef is one downloadable file extracted from a message.
type fileRef struct {
	fileID   string
	uniqueID string
	kind     models.AttachmentKind
	ext      string
	meta     models.AttachmentMetadata
}

// Fetch returns refs for every attachment it managed to download. A
// failed download is logged and skipped; the message still goes out,
// just without that file.
func (d *Downloader) Fetch(ctx context.Context, msg *telego.Message) []models.AttachmentRef {
	refs := make([]models.AttachmentRef, 0, 1)
	for _, fr := range extractFiles(msg) {
		ref, err := d.download(ctx, msg.Chat.ID, msg.MessageID, fr)
		if err != nil {
			metrics.AttachmentDownloadsTotal.WithLabelValues(string(fr.kind), "error").Inc()
			d.logger.WarnwCtx(ctx, "Attachment download failed",
				"error", err,
				"file_id", fr.fileID,
				"kind", fr.kind,
			)
			continue
		}
		metrics.AttachmentDownloadsTotal.WithLabelValues(string(fr.kind), "ok").Inc()
		refs = append(refs, ref)
	}
	return refs
}

func (d *Downloader) download(ctx context.Context, chatID int64, messageID int, fr fileRef) (models.AttachmentRef, error) {
	start := time.Now()

	if localPath, size, ok := d.store.FindExisting(fr.kind, chatID, messageID, fr.uniqueID); ok {
		d.logger.DebugwCtx(ctx, "Attachment already stored, skipping download",
			"kind", fr.kind,
			"local_path", localPath,
		)
		return models.AttachmentRef{
			FileID:       fr.fileID,
			FileUniqueID: fr.uniqueID,
			Kind:         fr.kind,
			SizeBytes:    size,
			LocalPath:    localPath,
			Metadata:     fr.meta,
		}, nil
	}

	file, err := d.bot.GetFile(ctx, &telego.GetFileParams{FileID: fr.fileID})
	if err != nil {
		return models.AttachmentRef{}, fmt.Errorf("getFile failed: %w", err)
	}

	ext := fr.ext
	if e := path.Ext(file.FilePath); e != "" {
		ext = e
	}
	name := d.store.Filename(fr.kind, chatID, messageID, fr.uniqueID, ext)

	url := d.bot.FileDownloadURL(file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.AttachmentRef{}, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return models.AttachmentRef{}, fmt.Errorf("file download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.AttachmentRef{}, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	localPath, size, err := d.store.Save(name, resp.Body)
	if err != nil {
		return models.AttachmentRef{}, err
	}

	metrics.AttachmentDownloadDuration.WithLabelValues(string(fr.kind)).
		Observe(float64(time.Since(start).Milliseconds()))
	d.logger.InfowCtx(ctx, "Attachment downloaded",
		"kind", fr.kind,
		"local_path", localPath,
		"size_bytes", size,
	)

	return models.AttachmentRef{
		FileID:       fr.fileID,
		FileUniqueID: fr.uniqueID,
		Kind:         fr.kind,
		SizeBytes:    size,
		LocalPath:    localPath,
		Metadata:     fr.meta,
	}, nil
}

// extractFiles lists the files a message carries. Photos collapse to
// the single best size variant.
func extractFiles(msg *telego.Message) []fileRef {
	var refs []fileRef

	if len(msg.Photo) > 0 {
		best := BestPhoto(msg.Photo)
		refs = append(refs, fileRef{
			fileID:   best.FileID,
			uniqueID: best.FileUniqueID,
			kind:     models.AttachmentPhoto,
			ext:      "jpg",
			meta:     models.AttachmentMetadata{Width: best.Width, Height: best.Height},
		})
	}
	if msg.Audio != nil {
		refs = append(refs, fileRef{
			fileID:   msg.Audio.FileID,
			uniqueID: msg.Audio.FileUniqueID,
			kind:     models.AttachmentAudio,
			ext:      "mp3",
			meta: models.AttachmentMetadata{
				Duration:  msg.Audio.Duration,
				Performer: msg.Audio.Performer,
				Title:     msg.Audio.Title,
				FileName:  msg.Audio.FileName,
				MimeType:  msg.Audio.MimeType,
			},
		})
	}
	if msg.Voice != nil {
		refs = append(refs, fileRef{
			fileID:   msg.Voice.FileID,
			uniqueID: msg.Voice.FileUniqueID,
			kind:     models.AttachmentVoice,
			ext:      "ogg",
			meta: models.AttachmentMetadata{
				Duration: msg.Voice.Duration,
				MimeType: msg.Voice.MimeType,
			},
		})
	}
	if msg.Video != nil {
		refs = append(refs, fileRef{
			fileID:   msg.Video.FileID,
			uniqueID: msg.Video.FileUniqueID,
			kind:     models.AttachmentVideo,
			ext:      "mp4",
			meta: models.AttachmentMetadata{
				Width:    msg.Video.Width,
				Height:   msg.Video.Height,
				Duration: msg.Video.Duration,
				FileName: msg.Video.FileName,
				MimeType: msg.Video.MimeType,
			},
		})
	}
	if msg.VideoNote != nil {
		refs = append(refs, fileRef{
			fileID:   msg.VideoNote.FileID,
			uniqueID: msg.VideoNote.FileUniqueID,
			kind:     models.AttachmentVideoNote,
			ext:      "mp4",
			meta: models.AttachmentMetadata{
				Duration: msg.VideoNote.Duration,
				Length:   msg.VideoNote.Length,
			},
		})
	}
	if msg.Document != nil {
		refs = append(refs, fileRef{
			fileID:   msg.Document.FileID,
			uniqueID: msg.Document.FileUniqueID,
			kind:     models.AttachmentDocument,
			ext:      "bin",
			meta: models.AttachmentMetadata{
				FileName: msg.Document.FileName,
				MimeType: msg.Document.MimeType,
			},
		})
	}
	if msg.Sticker != nil {
		refs = append(refs, fileRef{
			fileID:   msg.Sticker.FileID,
			uniqueID: msg.Sticker.FileUniqueID,
			kind:     models.AttachmentSticker,
			ext:      "webp",
			meta: models.AttachmentMetadata{
				Width:  msg.Sticker.Width,
				Height: msg.Sticker.Height,
				Emoji:  msg.Sticker.Emoji,
			},
		})
	}
	if msg.Animation != nil {
		refs = append(refs, fileRef{
			fileID:   msg.Animation.FileID,
			uniqueID: msg.Animation.FileUniqueID,
			kind:     models.AttachmentAnimation,
			ext:      "mp4",
			meta: models.AttachmentMetadata{
				Width:    msg.Animation.Width,
				Height:   msg.Animation.Height,
				Duration: msg.Animation.Duration,
				FileName: msg.Animation.FileName,
				MimeType: msg.Animation.MimeType,
			},
		})
	}

	return refs
}

// BestPhoto picks the variant with the largest pixel area, breaking
// ties by file size.
func BestPhoto(sizes []telego.PhotoSize) telego.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		area, bestArea := s.Width*s.Height, best.Width*best.Height
		if area > bestArea || (area == bestArea && s.FileSize > best.FileSize) {
			best = s
		}
	}
	return best
}
