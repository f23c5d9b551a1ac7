package models

// AttachmentKind enumerates the media classes the attachment pipeline
// can persist.
type AttachmentKind string

const (
	AttachmentPhoto     AttachmentKind = "photo"
	AttachmentAudio     AttachmentKind = "audio"
	AttachmentVoice     AttachmentKind = "voice"
	AttachmentVideo     AttachmentKind = "video"
	AttachmentVideoNote AttachmentKind = "videonote"
	AttachmentDocument  AttachmentKind = "document"
	AttachmentSticker   AttachmentKind = "sticker"
	AttachmentAnimation AttachmentKind = "animation"
)

// AttachmentRef describes one downloaded file. It is created only
// after a successful download; LocalPath is always absolute.
type AttachmentRef struct {
	FileID       string             `json:"file_id"`
	FileUniqueID string             `json:"file_unique_id"`
	Kind         AttachmentKind     `json:"file_type"`
	SizeBytes    int64              `json:"file_size"`
	LocalPath    string             `json:"local_path"`
	Metadata     AttachmentMetadata `json:"metadata"`
}

// AttachmentMetadata carries the kind-specific fields the platform
// reports for a file. Unused fields stay at their zero value and are
// omitted on the wire.
type AttachmentMetadata struct {
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Length    int    `json:"length,omitempty"`
	Performer string `json:"performer,omitempty"`
	Title     string `json:"title,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
}
