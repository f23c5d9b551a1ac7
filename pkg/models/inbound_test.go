package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInboundMessage(t *testing.T) {
	source := MessageSource{Platform: "telegram", BotUsername: "bifrost_bot"}
	variant := InboundVariant{CallbackQuery: &CallbackQueryData{
		ChatID:          10,
		UserID:          20,
		MessageID:       30,
		CallbackData:    "press",
		CallbackQueryID: "cb-1",
	}}

	msg := NewInboundMessage(variant, source)
	assert.NotEmpty(t, msg.TraceID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, "telegram", msg.Source.Platform)
	assert.Equal(t, InboundTypeCallbackQuery, msg.MessageType.Tag())

	other := NewInboundMessage(variant, source)
	assert.NotEqual(t, msg.TraceID, other.TraceID, "each update gets its own trace id")
}

func TestInboundVariantRoundTrip(t *testing.T) {
	userID := int64(77)
	tests := []struct {
		name    string
		variant InboundVariant
		tag     string
	}{
		{
			name: "telegram message with attachment",
			variant: InboundVariant{TelegramMessage: &TelegramMessageData{
				Message: json.RawMessage(`{"message_id":1,"text":"hi"}`),
				Attachments: []AttachmentRef{{
					FileID:       "f1",
					FileUniqueID: "u1",
					Kind:         AttachmentPhoto,
					SizeBytes:    2048,
					LocalPath:    "/files/in/photo_1_1_u1_1700000000.jpg",
				}},
			}},
			tag: InboundTypeTelegramMessage,
		},
		{
			name: "edited message",
			variant: InboundVariant{EditedMessage: &EditedMessageData{
				Message:  json.RawMessage(`{"message_id":2,"text":"fixed typo"}`),
				EditDate: 1700000500,
			}},
			tag: InboundTypeEditedMessage,
		},
		{
			name: "reaction with user",
			variant: InboundVariant{MessageReaction: &MessageReactionData{
				ChatID:      5,
				MessageID:   6,
				UserID:      &userID,
				OldReaction: []string{},
				NewReaction: []string{"\U0001F44D"},
			}},
			tag: InboundTypeMessageReaction,
		},
		{
			name: "anonymous reaction",
			variant: InboundVariant{MessageReaction: &MessageReactionData{
				ChatID:      5,
				MessageID:   6,
				UserID:      nil,
				OldReaction: []string{"❤"},
				NewReaction: []string{},
			}},
			tag: InboundTypeMessageReaction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.variant)
			require.NoError(t, err)

			var tagged struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(raw, &tagged))
			assert.Equal(t, tt.tag, tagged.Type)

			var decoded InboundVariant
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.Equal(t, tt.tag, decoded.Tag())
		})
	}
}

func TestInboundVariantUnknownTag(t *testing.T) {
	var v InboundVariant
	err := json.Unmarshal([]byte(`{"type":"QuantumMessage","data":{}}`), &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QuantumMessage")
}

func TestInboundVariantIgnoresUnknownDataFields(t *testing.T) {
	var v InboundVariant
	err := json.Unmarshal([]byte(`{"type":"CallbackQuery","data":{"chat_id":1,"user_id":2,"message_id":3,"callback_data":"x","callback_query_id":"q","from_the_future":true}}`), &v)
	require.NoError(t, err)
	require.NotNil(t, v.CallbackQuery)
	assert.Equal(t, "x", v.CallbackQuery.CallbackData)
}
