package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bifrost/internal/constants"
	bridgeerrors "bifrost/pkg/errors"
)

// Outbound variant tags as they appear on the wire.
const (
	OutboundTypeText      = "TextMessage"
	OutboundTypeImage     = "ImageMessage"
	OutboundTypeAudio     = "AudioMessage"
	OutboundTypeVoice     = "VoiceMessage"
	OutboundTypeVideo     = "VideoMessage"
	OutboundTypeVideoNote = "VideoNoteMessage"
	OutboundTypeDocument  = "DocumentMessage"
	OutboundTypeSticker   = "StickerMessage"
	OutboundTypeAnimation = "AnimationMessage"
	OutboundTypeEdit      = "EditMessage"
	OutboundTypeDelete    = "DeleteMessage"
	OutboundTypeTyping    = "TypingMessage"
)

// Format modes accepted on outbound text and captions.
const (
	FormatPlain    = ""
	FormatMarkdown = "Markdown"
	FormatHTML     = "HTML"
)

// OutboundMessage is the unified envelope consumed from the broker.
// TraceID is optional on the wire; EnsureTraceID guarantees it is
// non-empty before the message enters the delivery engine.
type OutboundMessage struct {
	TraceID     string          `json:"trace_id,omitempty"`
	MessageType OutboundVariant `json:"message_type"`
	Timestamp   time.Time       `json:"timestamp"`
	Target      MessageTarget   `json:"target"`
}

type MessageTarget struct {
	Platform string `json:"platform"`
	ChatID   int64  `json:"chat_id"`
	ThreadID *int   `json:"thread_id"`
}

// EnsureTraceID generates a correlation identifier when the producer
// did not supply one, and reports whether it did so.
func (m *OutboundMessage) EnsureTraceID() bool {
	if m.TraceID != "" {
		return false
	}
	m.TraceID = uuid.NewString()
	return true
}

// OutboundVariant is a closed tagged union serialized as
// {"type": "<tag>", "data": {...}}. Exactly one pointer is set.
type OutboundVariant struct {
	Text      *TextMessageData      `json:"-"`
	Image     *ImageMessageData     `json:"-"`
	Audio     *AudioMessageData     `json:"-"`
	Voice     *VoiceMessageData     `json:"-"`
	Video     *VideoMessageData     `json:"-"`
	VideoNote *VideoNoteMessageData `json:"-"`
	Document  *DocumentMessageData  `json:"-"`
	Sticker   *StickerMessageData   `json:"-"`
	Animation *AnimationMessageData `json:"-"`
	Edit      *EditMessageData      `json:"-"`
	Delete    *DeleteMessageData    `json:"-"`
	Typing    *TypingMessageData    `json:"-"`
}

// Tag returns the wire tag of the variant that is set, or "".
func (v OutboundVariant) Tag() string {
	switch {
	case v.Text != nil:
		return OutboundTypeText
	case v.Image != nil:
		return OutboundTypeImage
	case v.Audio != nil:
		return OutboundTypeAudio
	case v.Voice != nil:
		return OutboundTypeVoice
	case v.Video != nil:
		return OutboundTypeVideo
	case v.VideoNote != nil:
		return OutboundTypeVideoNote
	case v.Document != nil:
		return OutboundTypeDocument
	case v.Sticker != nil:
		return OutboundTypeSticker
	case v.Animation != nil:
		return OutboundTypeAnimation
	case v.Edit != nil:
		return OutboundTypeEdit
	case v.Delete != nil:
		return OutboundTypeDelete
	case v.Typing != nil:
		return OutboundTypeTyping
	}
	return ""
}

func (v OutboundVariant) MarshalJSON() ([]byte, error) {
	var data interface{}
	switch {
	case v.Text != nil:
		data = v.Text
	case v.Image != nil:
		data = v.Image
	case v.Audio != nil:
		data = v.Audio
	case v.Voice != nil:
		data = v.Voice
	case v.Video != nil:
		data = v.Video
	case v.VideoNote != nil:
		data = v.VideoNote
	case v.Document != nil:
		data = v.Document
	case v.Sticker != nil:
		data = v.Sticker
	case v.Animation != nil:
		data = v.Animation
	case v.Edit != nil:
		data = v.Edit
	case v.Delete != nil:
		data = v.Delete
	case v.Typing != nil:
		data = v.Typing
	default:
		return nil, fmt.Errorf("outbound variant has no type set")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedVariant{Type: v.Tag(), Data: raw})
}

func (v *OutboundVariant) UnmarshalJSON(b []byte) error {
	var tagged taggedVariant
	if err := json.Unmarshal(b, &tagged); err != nil {
		return err
	}

	*v = OutboundVariant{}
	switch tagged.Type {
	case OutboundTypeText:
		v.Text = &TextMessageData{}
		return json.Unmarshal(tagged.Data, v.Text)
	case OutboundTypeImage:
		v.Image = &ImageMessageData{}
		return json.Unmarshal(tagged.Data, v.Image)
	case OutboundTypeAudio:
		v.Audio = &AudioMessageData{}
		return json.Unmarshal(tagged.Data, v.Audio)
	case OutboundTypeVoice:
		v.Voice = &VoiceMessageData{}
		return json.Unmarshal(tagged.Data, v.Voice)
	case OutboundTypeVideo:
		v.Video = &VideoMessageData{}
		return json.Unmarshal(tagged.Data, v.Video)
	case OutboundTypeVideoNote:
		v.VideoNote = &VideoNoteMessageData{}
		return json.Unmarshal(tagged.Data, v.VideoNote)
	case OutboundTypeDocument:
		v.Document = &DocumentMessageData{}
		return json.Unmarshal(tagged.Data, v.Document)
	case OutboundTypeSticker:
		v.Sticker = &StickerMessageData{}
		return json.Unmarshal(tagged.Data, v.Sticker)
	case OutboundTypeAnimation:
		v.Animation = &AnimationMessageData{}
		return json.Unmarshal(tagged.Data, v.Animation)
	case OutboundTypeEdit:
		v.Edit = &EditMessageData{}
		return json.Unmarshal(tagged.Data, v.Edit)
	case OutboundTypeDelete:
		v.Delete = &DeleteMessageData{}
		return json.Unmarshal(tagged.Data, v.Delete)
	case OutboundTypeTyping:
		v.Typing = &TypingMessageData{}
		return json.Unmarshal(tagged.Data, v.Typing)
	}
	return fmt.Errorf("unknown outbound message type %q", tagged.Type)
}

type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type ReplyKeyboardButton struct {
	Text            string       `json:"text"`
	RequestContact  bool         `json:"request_contact,omitempty"`
	RequestLocation bool         `json:"request_location,omitempty"`
	RequestPoll     *RequestPoll `json:"request_poll,omitempty"`
	WebApp          *WebApp      `json:"web_app,omitempty"`
}

type RequestPoll struct {
	PollType string `json:"type,omitempty"` // "quiz" or "regular"
}

type WebApp struct {
	URL string `json:"url"`
}

type ReplyKeyboard struct {
	Keyboard              [][]ReplyKeyboardButton `json:"keyboard"`
	IsPersistent          bool                    `json:"is_persistent,omitempty"`
	ResizeKeyboard        bool                    `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard       bool                    `json:"one_time_keyboard,omitempty"`
	InputFieldPlaceholder string                  `json:"input_field_placeholder,omitempty"`
	Selective             bool                    `json:"selective,omitempty"`
}

type TextMessageData struct {
	Text                  string         `json:"text"`
	Buttons               [][]Button     `json:"buttons,omitempty"`
	ReplyKeyboard         *ReplyKeyboard `json:"reply_keyboard,omitempty"`
	ParseMode             string         `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool           `json:"disable_web_page_preview,omitempty"`
}

type ImageMessageData struct {
	ImagePath     string         `json:"image_path"`
	Caption       string         `json:"caption,omitempty"`
	Buttons       [][]Button     `json:"buttons,omitempty"`
	ReplyKeyboard *ReplyKeyboard `json:"reply_keyboard,omitempty"`
}

type AudioMessageData struct {
	AudioPath     string         `json:"audio_path"`
	Caption       string         `json:"caption,omitempty"`
	Duration      int            `json:"duration,omitempty"`
	Performer     string         `json:"performer,omitempty"`
	Title         string         `json:"title,omitempty"`
	Buttons       [][]Button     `json:"buttons,omitempty"`
	ReplyKeyboard *ReplyKeyboard `json:"reply_keyboard,omitempty"`
}

type VoiceMessageData struct {
	VoicePath     string         `json:"voice_path"`
	Caption       string         `json:"caption,omitempty"`
	Duration      int            `json:"duration,omitempty"`
	Buttons       [][]Button     `json:"buttons,omitempty"`
	ReplyKeyboard *ReplyKeyboard `json:"reply_keyboard,omitempty"`
}

type VideoMessageData struct {
	VideoPath         string         `json:"video_path"`
	Caption           string         `json:"caption,omitempty"`
	Duration          int            `json:"duration,omitempty"`
	Width             int            `json:"width,omitempty"`
	Height            int            `json:"height,omitempty"`
	SupportsStreaming bool           `json:"supports_streaming,omitempty"`
	Buttons           [][]Button     `json:"buttons,omitempty"`
	ReplyKeyboard     *ReplyKeyboard `json:"reply_keyboard,omitempty"`
}

type VideoNoteMessageData struct {
	VideoNotePath string         `json:"video_note_path"`
	Duration      int            `json:"duration,omitempty"`
	Length        int            `json:"length,omitempty"`
	Buttons       [][]Button     `json:"buttons,omitempty"`
	ReplyKeyboard *ReplyKeyboard `json:"reply_keyboard,omitempty"`
}

type DocumentMessageData struct {
	DocumentPath  string         `json:"document_path"`
	Filename      string         `json:"filename,omitempty"`
	Caption       string         `json:"caption,omitempty"`
	Buttons       [][]Button     `json:"buttons,omitempty"`
	ReplyKeyboard *ReplyKeyboard `json:"reply_keyboard,omitempty"`
}

type StickerMessageData struct {
	StickerPath   string         `json:"sticker_path"`
	Emoji         string         `json:"emoji,omitempty"`
	Buttons       [][]Button     `json:"buttons,omitempty"`
	ReplyKeyboard *ReplyKeyboard `json:"reply_keyboard,omitempty"`
}

type AnimationMessageData struct {
	AnimationPath string         `json:"animation_path"`
	Caption       string         `json:"caption,omitempty"`
	Duration      int            `json:"duration,omitempty"`
	Width         int            `json:"width,omitempty"`
	Height        int            `json:"height,omitempty"`
	Buttons       [][]Button     `json:"buttons,omitempty"`
	ReplyKeyboard *ReplyKeyboard `json:"reply_keyboard,omitempty"`
}

type EditMessageData struct {
	MessageID  int        `json:"message_id"`
	NewText    string     `json:"new_text,omitempty"`
	NewButtons [][]Button `json:"new_buttons,omitempty"`
}

type DeleteMessageData struct {
	MessageID int `json:"message_id"`
}

type TypingMessageData struct{}

// legacyOutbound is the pre-envelope flat shape older producers still
// emit. It maps onto a plain text message.
type legacyOutbound struct {
	ChatID  *int64     `json:"chat_id"`
	Text    *string    `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
}

// ParseOutbound decodes a broker payload into an outbound message.
// The unified envelope is tried first; the legacy flat shape is the
// compatibility fallback. Anything else is a malformed-payload error.
func ParseOutbound(payload []byte) (OutboundMessage, error) {
	var msg OutboundMessage
	envelopeErr := json.Unmarshal(payload, &msg)
	if envelopeErr == nil && msg.MessageType.Tag() != "" {
		msg.EnsureTraceID()
		return msg, nil
	}

	var legacy legacyOutbound
	if err := json.Unmarshal(payload, &legacy); err == nil && legacy.ChatID != nil && legacy.Text != nil {
		msg = OutboundMessage{
			MessageType: OutboundVariant{Text: &TextMessageData{
				Text:    *legacy.Text,
				Buttons: legacy.Buttons,
			}},
			Timestamp: time.Now().UTC(),
			Target: MessageTarget{
				Platform: constants.PlatformTelegram,
				ChatID:   *legacy.ChatID,
			},
		}
		msg.EnsureTraceID()
		return msg, nil
	}

	malformed := bridgeerrors.ErrMalformedPayload.
		WithDetail("payload_bytes", len(payload)).
		AsFatal()
	if envelopeErr != nil {
		malformed = malformed.WithCause(envelopeErr)
	}
	return OutboundMessage{}, malformed
}
