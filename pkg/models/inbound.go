package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Inbound variant tags as they appear on the wire.
const (
	InboundTypeTelegramMessage = "TelegramMessage"
	InboundTypeEditedMessage   = "EditedMessage"
	InboundTypeCallbackQuery   = "CallbackQuery"
	InboundTypeMessageReaction = "MessageReaction"
)

// InboundMessage is the unified envelope published to the broker for
// every platform update. Exactly one variant is set.
type InboundMessage struct {
	TraceID     string         `json:"trace_id"`
	MessageType InboundVariant `json:"message_type"`
	Timestamp   time.Time      `json:"timestamp"`
	Source      MessageSource  `json:"source"`
}

// InboundVariant is a closed tagged union serialized as
// {"type": "<tag>", "data": {...}}.
type InboundVariant struct {
	TelegramMessage *TelegramMessageData `json:"-"`
	EditedMessage   *EditedMessageData   `json:"-"`
	CallbackQuery   *CallbackQueryData   `json:"-"`
	MessageReaction *MessageReactionData `json:"-"`
}

// Tag returns the wire tag of the variant that is set, or "".
func (v InboundVariant) Tag() string {
	switch {
	case v.TelegramMessage != nil:
		return InboundTypeTelegramMessage
	case v.EditedMessage != nil:
		return InboundTypeEditedMessage
	case v.CallbackQuery != nil:
		return InboundTypeCallbackQuery
	case v.MessageReaction != nil:
		return InboundTypeMessageReaction
	}
	return ""
}

type taggedVariant struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (v InboundVariant) MarshalJSON() ([]byte, error) {
	var data interface{}
	switch {
	case v.TelegramMessage != nil:
		data = v.TelegramMessage
	case v.EditedMessage != nil:
		data = v.EditedMessage
	case v.CallbackQuery != nil:
		data = v.CallbackQuery
	case v.MessageReaction != nil:
		data = v.MessageReaction
	default:
		return nil, fmt.Errorf("inbound variant has no type set")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedVariant{Type: v.Tag(), Data: raw})
}

func (v *InboundVariant) UnmarshalJSON(b []byte) error {
	var tagged taggedVariant
	if err := json.Unmarshal(b, &tagged); err != nil {
		return err
	}

	*v = InboundVariant{}
	switch tagged.Type {
	case InboundTypeTelegramMessage:
		v.TelegramMessage = &TelegramMessageData{}
		return json.Unmarshal(tagged.Data, v.TelegramMessage)
	case InboundTypeEditedMessage:
		v.EditedMessage = &EditedMessageData{}
		return json.Unmarshal(tagged.Data, v.EditedMessage)
	case InboundTypeCallbackQuery:
		v.CallbackQuery = &CallbackQueryData{}
		return json.Unmarshal(tagged.Data, v.CallbackQuery)
	case InboundTypeMessageReaction:
		v.MessageReaction = &MessageReactionData{}
		return json.Unmarshal(tagged.Data, v.MessageReaction)
	}
	return fmt.Errorf("unknown inbound message type %q", tagged.Type)
}

// TelegramMessageData carries the raw platform message plus any
// attachments the download pipeline persisted locally. Attachments may
// be empty even when the message had media (download failures are
// logged, not fatal).
type TelegramMessageData struct {
	Message     json.RawMessage `json:"message"`
	Attachments []AttachmentRef `json:"downloaded_files"`
}

// EditedMessageData mirrors TelegramMessageData for message edits.
type EditedMessageData struct {
	Message     json.RawMessage `json:"message"`
	Attachments []AttachmentRef `json:"downloaded_files"`
	EditDate    int64           `json:"edit_date,omitempty"`
}

type CallbackQueryData struct {
	ChatID          int64  `json:"chat_id"`
	UserID          int64  `json:"user_id"`
	MessageID       int    `json:"message_id"`
	CallbackData    string `json:"callback_data"`
	CallbackQueryID string `json:"callback_query_id"`
}

type MessageReactionData struct {
	ChatID      int64     `json:"chat_id"`
	MessageID   int       `json:"message_id"`
	UserID      *int64    `json:"user_id"` // nil for anonymous actors
	Date        time.Time `json:"date"`
	OldReaction []string  `json:"old_reaction"`
	NewReaction []string  `json:"new_reaction"`
}

type MessageSource struct {
	Platform    string `json:"platform"`
	BotID       *int64 `json:"bot_id"`
	BotUsername string `json:"bot_username,omitempty"`
}

// NewInboundMessage wraps a variant in a fully populated envelope with
// a fresh trace id.
func NewInboundMessage(variant InboundVariant, source MessageSource) InboundMessage {
	return InboundMessage{
		TraceID:     uuid.NewString(),
		MessageType: variant,
		Timestamp:   time.Now().UTC(),
		Source:      source,
	}
}
