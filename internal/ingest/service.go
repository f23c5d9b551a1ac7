// Package ingest runs the platform-to-broker pipeline: every update
// the bot receives becomes exactly one unified inbound message on the
// broker.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/mymmrac/telego"

	"bifrost/internal/broker"
	"bifrost/internal/constants"
	"bifrost/internal/logger"
	"bifrost/internal/telegram"
	bridgeerrors "bifrost/pkg/errors"
	"bifrost/pkg/logging"
	"bifrost/pkg/metrics"
	"bifrost/pkg/models"
)

type Service struct {
	client     *telegram.Client
	downloader *telegram.Downloader
	producer   broker.Producer
	topic      string
	source     models.MessageSource
	logger     logger.Logger
}

func New(client *telegram.Client, downloader *telegram.Downloader, producer broker.Producer, topic string, log logger.Logger) *Service {
	return &Service{
		client:     client,
		downloader: downloader,
		producer:   producer,
		topic:      topic,
		source:     models.MessageSource{Platform: constants.PlatformTelegram},
		logger:     log,
	}
}

// Run long-polls for updates until ctx is canceled. A failure while
// handling one update never stops the loop.
func (s *Service) Run(ctx context.Context) error {
	meCtx, cancel := context.WithTimeout(ctx, constants.APICallTimeout)
	defer cancel()
	if me, err := s.client.Me(meCtx); err != nil {
		s.logger.Warnw("Failed to resolve bot identity", "error", err)
	} else {
		s.source.BotID = &me.ID
		s.source.BotUsername = me.Username
	}

	updates, err := s.client.Bot().UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "edited_message", "callback_query", "message_reaction"},
	})
	if err != nil {
		return err
	}

	s.logger.Infow("Update listener started", "bot_username", s.source.BotUsername)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("telegram updates channel closed")
			}
			s.handleUpdate(ctx, update)
		}
	}
}

func (s *Service) handleUpdate(ctx context.Context, update telego.Update) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorwCtx(ctx, "Panic recovered while handling update",
				"error", bridgeerrors.RecoverPanic(r),
				"update_id", update.UpdateID,
			)
		}
	}()

	var (
		variant models.InboundVariant
		chatID  int64
		kind    string
	)

	switch {
	case update.Message != nil:
		kind = "message"
		chatID = update.Message.Chat.ID
		variant = s.messageVariant(ctx, update.Message, false)
	case update.EditedMessage != nil:
		kind = "edited_message"
		chatID = update.EditedMessage.Chat.ID
		variant = s.messageVariant(ctx, update.EditedMessage, true)
	case update.CallbackQuery != nil:
		kind = "callback_query"
		variant, chatID = s.callbackVariant(ctx, update.CallbackQuery)
	case update.MessageReaction != nil:
		kind = "message_reaction"
		chatID = update.MessageReaction.Chat.ID
		variant = reactionVariant(update.MessageReaction)
	default:
		return
	}

	metrics.UpdatesReceivedTotal.WithLabelValues(kind).Inc()

	msg := models.NewInboundMessage(variant, s.source)
	msgCtx := logging.WithTraceID(ctx, msg.TraceID)
	msgCtx = logging.WithChatID(msgCtx, chatID)

	payload, err := json.Marshal(msg)
	if err != nil {
		metrics.InboundPublishedTotal.WithLabelValues(kind, "error").Inc()
		s.logger.ErrorwCtx(msgCtx, "Failed to marshal inbound message", "error", err)
		return
	}

	key := []byte(strconv.FormatInt(chatID, 10))
	if err := s.producer.Publish(msgCtx, s.topic, key, payload); err != nil {
		metrics.InboundPublishedTotal.WithLabelValues(kind, "error").Inc()
		s.logger.ErrorwCtx(msgCtx, "Failed to publish inbound message",
			"error", err,
			"topic", s.topic,
			"kind", kind,
		)
		return
	}

	metrics.InboundPublishedTotal.WithLabelValues(kind, "ok").Inc()
	s.logger.InfowCtx(msgCtx, "Inbound message published",
		"topic", s.topic,
		"kind", kind,
	)
}

func (s *Service) messageVariant(ctx context.Context, msg *telego.Message, edited bool) models.InboundVariant {
	attachments := s.downloader.Fetch(ctx, msg)

	raw, err := json.Marshal(msg)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to marshal platform message", "error", err)
		raw = []byte("{}")
	}

	if edited {
		return models.InboundVariant{EditedMessage: &models.EditedMessageData{
			Message:     raw,
			Attachments: attachments,
			EditDate:    msg.EditDate,
		}}
	}
	return models.InboundVariant{TelegramMessage: &models.TelegramMessageData{
		Message:     raw,
		Attachments: attachments,
	}}
}

// callbackVariant acknowledges the query before publishing so the
// button stops spinning even if the broker is slow.
func (s *Service) callbackVariant(ctx context.Context, q *telego.CallbackQuery) (models.InboundVariant, int64) {
	if err := s.client.AnswerCallbackQuery(ctx, q.ID); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to answer callback query",
			"error", err,
			"callback_query_id", q.ID,
		)
	}

	var chatID int64
	var messageID int
	if q.Message != nil {
		chatID = q.Message.GetChat().ID
		messageID = q.Message.GetMessageID()
	}

	return models.InboundVariant{CallbackQuery: &models.CallbackQueryData{
		ChatID:          chatID,
		UserID:          q.From.ID,
		MessageID:       messageID,
		CallbackData:    q.Data,
		CallbackQueryID: q.ID,
	}}, chatID
}

func reactionVariant(r *telego.MessageReactionUpdated) models.InboundVariant {
	var userID *int64
	if r.User != nil {
		userID = &r.User.ID
	}

	return models.InboundVariant{MessageReaction: &models.MessageReactionData{
		ChatID:      r.Chat.ID,
		MessageID:   r.MessageID,
		UserID:      userID,
		Date:        time.Unix(r.Date, 0).UTC(),
		OldReaction: reactionEmojis(r.OldReaction),
		NewReaction: reactionEmojis(r.NewReaction),
	}}
}

func reactionEmojis(reactions []telego.ReactionType) []string {
	out := make([]string, 0, len(reactions))
	for _, r := range reactions {
		switch v := r.(type) {
		case *telego.ReactionTypeEmoji:
			out = append(out, v.Emoji)
		case *telego.ReactionTypeCustomEmoji:
			out = append(out, v.CustomEmojiID)
		case *telego.ReactionTypePaid:
			out = append(out, "paid")
		}
	}
	return out
}
