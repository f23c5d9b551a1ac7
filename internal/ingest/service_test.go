package ingest

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/pkg/models"
)

func TestReactionVariantWithUser(t *testing.T) {
	r := &telego.MessageReactionUpdated{
		Chat:      telego.Chat{ID: 100},
		MessageID: 55,
		User:      &telego.User{ID: 7},
		Date:      1_700_000_000,
		OldReaction: []telego.ReactionType{
			&telego.ReactionTypeEmoji{Type: "emoji", Emoji: "\U0001F44D"},
		},
		NewReaction: []telego.ReactionType{
			&telego.ReactionTypeEmoji{Type: "emoji", Emoji: "❤"},
		},
	}

	v := reactionVariant(r)
	require.NotNil(t, v.MessageReaction)
	data := v.MessageReaction
	assert.Equal(t, int64(100), data.ChatID)
	assert.Equal(t, 55, data.MessageID)
	require.NotNil(t, data.UserID)
	assert.Equal(t, int64(7), *data.UserID)
	assert.Equal(t, []string{"\U0001F44D"}, data.OldReaction)
	assert.Equal(t, []string{"❤"}, data.NewReaction)
}

func TestReactionVariantAnonymous(t *testing.T) {
	r := &telego.MessageReactionUpdated{
		Chat:      telego.Chat{ID: 100},
		MessageID: 56,
		Date:      1_700_000_000,
	}

	v := reactionVariant(r)
	require.NotNil(t, v.MessageReaction)
	assert.Nil(t, v.MessageReaction.UserID)
	assert.Empty(t, v.MessageReaction.NewReaction)
}

func TestReactionEmojisMixedKinds(t *testing.T) {
	got := reactionEmojis([]telego.ReactionType{
		&telego.ReactionTypeEmoji{Type: "emoji", Emoji: "\U0001F525"},
		&telego.ReactionTypeCustomEmoji{Type: "custom_emoji", CustomEmojiID: "custom-1"},
	})
	assert.Equal(t, []string{"\U0001F525", "custom-1"}, got)
}

func TestInboundVariantTagForMessage(t *testing.T) {
	v := models.InboundVariant{TelegramMessage: &models.TelegramMessageData{}}
	assert.Equal(t, models.InboundTypeTelegramMessage, v.Tag())
}
