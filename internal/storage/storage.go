// Package storage persists downloaded attachments under a configured
// directory with collision-free deterministic names.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bifrost/pkg/models"
)

type Storage struct {
	dir string
}

// New resolves and creates the storage directory. A directory that
// cannot be created is a configuration error; callers treat it as
// fatal at startup.
func New(dir string) (*Storage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", abs, err)
	}
	return &Storage{dir: abs}, nil
}

func (s *Storage) Dir() string {
	return s.dir
}

// Filename builds the deterministic name for one attachment:
// {kind}_{chat_id}_{message_id}_{unique_id}_{unix}.{ext}. The unique
// file id alone already avoids collisions; chat and message ids keep
// the directory greppable.
func (s *Storage) Filename(kind models.AttachmentKind, chatID int64, messageID int, uniqueID, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s_%d_%d_%s_%d.%s", kind, chatID, messageID, sanitize(uniqueID), time.Now().Unix(), ext)
}

// Save streams r into the storage directory and returns the absolute
// path and byte count. A partial file left by a failed write is
// removed.
func (s *Storage) Save(name string, r io.Reader) (string, int64, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, n, nil
}

// FindExisting looks for a previously stored copy of the same
// attachment, matching on everything but the download timestamp. A hit
// lets re-delivered updates skip the download.
func (s *Storage) FindExisting(kind models.AttachmentKind, chatID int64, messageID int, uniqueID string) (string, int64, bool) {
	pattern := fmt.Sprintf("%s_%d_%d_%s_*", kind, chatID, messageID, sanitize(uniqueID))
	matches, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil || len(matches) == 0 {
		return "", 0, false
	}
	info, err := os.Stat(matches[0])
	if err != nil {
		return "", 0, false
	}
	return matches[0], info.Size(), true
}

// sanitize strips path separators out of platform-supplied ids before
// they become part of a filename.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.', ':':
			return '-'
		}
		return r
	}, id)
}
