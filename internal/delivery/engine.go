// Package delivery consumes unified outbound messages and drives them
// through formatting, sending, fallback and retry until a terminal
// outcome.
package delivery

import (
	"context"
	"time"

	"bifrost/internal/broker"
	"bifrost/internal/logger"
	"bifrost/internal/telegram"
	"bifrost/pkg/chunker"
	bridgeerrors "bifrost/pkg/errors"
	"bifrost/pkg/keyboard"
	"bifrost/pkg/logging"
	"bifrost/pkg/markdown"
	"bifrost/pkg/metrics"
	"bifrost/pkg/models"
	"bifrost/pkg/retry"
)

type Engine struct {
	api         telegram.API
	producer    broker.Producer
	statusTopic string
	policy      retry.Policy
	logger      logger.Logger
}

func New(api telegram.API, producer broker.Producer, statusTopic string, policy retry.Policy, log logger.Logger) *Engine {
	return &Engine{
		api:         api,
		producer:    producer,
		statusTopic: statusTopic,
		policy:      policy,
		logger:      log,
	}
}

// Handle is the broker handler for the outbound topic. A payload that
// does not parse is dropped with an error; everything else reaches a
// terminal Delivered or SendFailed state without ever crashing the
// consume loop.
func (e *Engine) Handle(ctx context.Context, _ []byte, payload []byte) error {
	msg, err := models.ParseOutbound(payload)
	if err != nil {
		metrics.MalformedPayloadsTotal.WithLabelValues("outbound").Inc()
		e.logger.ErrorwCtx(ctx, "Dropping malformed outbound payload",
			"error", err,
			"payload", string(payload),
		)
		return err
	}

	e.Deliver(ctx, msg)
	return nil
}

// outcome is the result of one delivery lifecycle.
type outcome struct {
	messageID       int
	chunksDelivered int
	chunksTotal     int
	fallback        bool
	err             error
}

// Deliver runs one outbound message to a terminal state and reports
// it. Panics in variant dispatch are contained per message.
func (e *Engine) Deliver(ctx context.Context, msg models.OutboundMessage) {
	ctx = logging.WithTraceID(ctx, msg.TraceID)
	ctx = logging.WithChatID(ctx, msg.Target.ChatID)

	variant := msg.MessageType.Tag()
	start := time.Now()

	var out outcome
	func() {
		defer func() {
			if r := recover(); r != nil {
				out.err = bridgeerrors.RecoverPanic(r)
			}
		}()
		out = e.dispatch(ctx, msg)
	}()

	metrics.DeliveryDuration.WithLabelValues(variant).
		Observe(float64(time.Since(start).Milliseconds()))

	switch {
	case out.err == nil:
		metrics.DeliveriesTotal.WithLabelValues(variant, "delivered").Inc()
		e.logger.InfowCtx(ctx, "Delivered",
			"variant", variant,
			"message_id", out.messageID,
			"plain_text_fallback", out.fallback,
		)
	case out.chunksDelivered > 0:
		metrics.DeliveriesTotal.WithLabelValues(variant, "partial").Inc()
		e.logger.ErrorwCtx(ctx, "Send failed after partial delivery",
			"error", out.err,
			"variant", variant,
			"chunks_delivered", out.chunksDelivered,
			"chunks_total", out.chunksTotal,
		)
	default:
		metrics.DeliveriesTotal.WithLabelValues(variant, "failed").Inc()
		e.logger.ErrorwCtx(ctx, "Send failed",
			"error", out.err,
			"variant", variant,
		)
	}

	e.reportStatus(ctx, msg, out)
}

func (e *Engine) dispatch(ctx context.Context, msg models.OutboundMessage) outcome {
	chatID := msg.Target.ChatID
	v := msg.MessageType

	switch {
	case v.Text != nil:
		return e.deliverText(ctx, msg.Target, v.Text)
	case v.Image != nil:
		d := v.Image
		return e.deliverMedia(ctx, chatID, d.Caption, baseOptions(d.Buttons, d.ReplyKeyboard),
			func(caption string, opts telegram.SendOptions) (int, error) {
				return e.api.SendPhoto(ctx, chatID, d.ImagePath, caption, opts)
			})
	case v.Audio != nil:
		d := v.Audio
		meta := telegram.AudioMeta{Duration: d.Duration, Performer: d.Performer, Title: d.Title}
		return e.deliverMedia(ctx, chatID, d.Caption, baseOptions(d.Buttons, d.ReplyKeyboard),
			func(caption string, opts telegram.SendOptions) (int, error) {
				return e.api.SendAudio(ctx, chatID, d.AudioPath, caption, meta, opts)
			})
	case v.Voice != nil:
		d := v.Voice
		return e.deliverMedia(ctx, chatID, d.Caption, baseOptions(d.Buttons, d.ReplyKeyboard),
			func(caption string, opts telegram.SendOptions) (int, error) {
				return e.api.SendVoice(ctx, chatID, d.VoicePath, caption, d.Duration, opts)
			})
	case v.Video != nil:
		d := v.Video
		meta := telegram.VideoMeta{
			Duration:          d.Duration,
			Width:             d.Width,
			Height:            d.Height,
			SupportsStreaming: d.SupportsStreaming,
		}
		return e.deliverMedia(ctx, chatID, d.Caption, baseOptions(d.Buttons, d.ReplyKeyboard),
			func(caption string, opts telegram.SendOptions) (int, error) {
				return e.api.SendVideo(ctx, chatID, d.VideoPath, caption, meta, opts)
			})
	case v.VideoNote != nil:
		d := v.VideoNote
		opts := baseOptions(d.Buttons, d.ReplyKeyboard)
		var id int
		err := e.sendWithRetry(ctx, "sendVideoNote", func() error {
			var err error
			id, err = e.api.SendVideoNote(ctx, chatID, d.VideoNotePath, d.Duration, d.Length, opts)
			return err
		})
		return outcome{messageID: id, err: err}
	case v.Document != nil:
		d := v.Document
		return e.deliverMedia(ctx, chatID, d.Caption, baseOptions(d.Buttons, d.ReplyKeyboard),
			func(caption string, opts telegram.SendOptions) (int, error) {
				return e.api.SendDocument(ctx, chatID, d.DocumentPath, d.Filename, caption, opts)
			})
	case v.Sticker != nil:
		d := v.Sticker
		opts := baseOptions(d.Buttons, d.ReplyKeyboard)
		var id int
		err := e.sendWithRetry(ctx, "sendSticker", func() error {
			var err error
			id, err = e.api.SendSticker(ctx, chatID, d.StickerPath, d.Emoji, opts)
			return err
		})
		return outcome{messageID: id, err: err}
	case v.Animation != nil:
		d := v.Animation
		meta := telegram.VideoMeta{Duration: d.Duration, Width: d.Width, Height: d.Height}
		return e.deliverMedia(ctx, chatID, d.Caption, baseOptions(d.Buttons, d.ReplyKeyboard),
			func(caption string, opts telegram.SendOptions) (int, error) {
				return e.api.SendAnimation(ctx, chatID, d.AnimationPath, caption, meta, opts)
			})
	case v.Edit != nil:
		return e.deliverEdit(ctx, chatID, v.Edit)
	case v.Delete != nil:
		err := e.sendWithRetry(ctx, "deleteMessage", func() error {
			return e.api.DeleteMessage(ctx, chatID, v.Delete.MessageID)
		})
		return outcome{messageID: v.Delete.MessageID, err: err}
	case v.Typing != nil:
		return outcome{err: e.api.SendTyping(ctx, chatID)}
	}

	return outcome{err: bridgeerrors.ErrMalformedPayload.WithDetail("reason", "empty variant").AsFatal()}
}

// deliverText sends a text message formatted per its parse mode. A
// formatting rejection from the API triggers exactly one plain-text
// resend of the same content.
func (e *Engine) deliverText(ctx context.Context, target models.MessageTarget, d *models.TextMessageData) outcome {
	opts := baseOptions(d.Buttons, d.ReplyKeyboard)
	opts.DisablePreview = d.DisableWebPagePreview
	if target.ThreadID != nil {
		opts.ThreadID = *target.ThreadID
	}

	out := e.sendTextChunks(ctx, target.ChatID, d.Text, d.ParseMode, opts)
	if out.err != nil && bridgeerrors.IsFormattingRejection(out.err) {
		e.logger.WarnwCtx(ctx, "Formatted send rejected, retrying as plain text",
			"error", out.err,
		)
		plain := e.sendTextChunks(ctx, target.ChatID, d.Text, markdown.ModePlain, opts)
		plain.fallback = true
		if plain.err == nil {
			metrics.PlainTextFallbackTotal.WithLabelValues("delivered").Inc()
		} else {
			metrics.PlainTextFallbackTotal.WithLabelValues("failed").Inc()
		}
		return plain
	}
	return out
}

// sendTextChunks renders the text for the mode, splits it under the
// platform limit and sends the chunks in order. A chunk failure aborts
// the remainder; already sent chunks stay sent.
func (e *Engine) sendTextChunks(ctx context.Context, chatID int64, text, mode string, opts telegram.SendOptions) outcome {
	opts.ParseMode = mode
	rendered := markdown.Format(text, mode)
	chunks := chunker.SplitText(rendered)

	out := outcome{chunksTotal: len(chunks)}
	if len(chunks) > 1 {
		defer func() {
			if out.err == nil {
				metrics.ChunkedDeliveriesTotal.WithLabelValues("delivered").Inc()
			} else {
				metrics.ChunkedDeliveriesTotal.WithLabelValues("aborted").Inc()
			}
		}()
	}

	for i, chunk := range chunks {
		chunkOpts := opts
		// The keyboard belongs on the final message of the sequence.
		if i < len(chunks)-1 {
			chunkOpts.Buttons = nil
			chunkOpts.ReplyKeyboard = nil
		}

		var id int
		err := e.sendWithRetry(ctx, "sendMessage", func() error {
			var err error
			id, err = e.api.SendText(ctx, chatID, chunk, chunkOpts)
			return err
		})
		if err != nil {
			out.err = err
			return out
		}
		out.messageID = id
		out.chunksDelivered = i + 1
	}
	return out
}

// deliverMedia sends one media message carrying the first caption
// chunk, then any remaining caption text as follow-up plain messages.
func (e *Engine) deliverMedia(ctx context.Context, chatID int64, caption string, opts telegram.SendOptions, send func(caption string, opts telegram.SendOptions) (int, error)) outcome {
	chunks := chunker.SplitCaption(caption)
	lead := chunks[0]
	followups := chunks[1:]

	out := outcome{chunksTotal: len(chunks)}

	leadOpts := opts
	if len(followups) > 0 {
		leadOpts.Buttons = nil
		leadOpts.ReplyKeyboard = nil
	}

	var id int
	err := e.sendWithRetry(ctx, "sendMedia", func() error {
		var err error
		id, err = send(lead, leadOpts)
		return err
	})
	if err != nil {
		out.err = err
		return out
	}
	out.messageID = id
	out.chunksDelivered = 1

	for i, chunk := range followups {
		followOpts := opts
		if i < len(followups)-1 {
			followOpts.Buttons = nil
			followOpts.ReplyKeyboard = nil
		}

		err := e.sendWithRetry(ctx, "sendMessage", func() error {
			var err error
			id, err = e.api.SendText(ctx, chatID, chunk, followOpts)
			return err
		})
		if err != nil {
			out.err = err
			return out
		}
		out.messageID = id
		out.chunksDelivered = i + 2
	}
	return out
}

// deliverEdit patches text, buttons or both. An edit carrying neither
// is a producer bug worth a warning, not a failure.
func (e *Engine) deliverEdit(ctx context.Context, chatID int64, d *models.EditMessageData) outcome {
	switch {
	case d.NewText != "":
		opts := telegram.SendOptions{Buttons: organize(d.NewButtons)}
		err := e.sendWithRetry(ctx, "editMessageText", func() error {
			return e.api.EditMessageText(ctx, chatID, d.MessageID, d.NewText, opts)
		})
		return outcome{messageID: d.MessageID, err: err}
	case len(d.NewButtons) > 0:
		err := e.sendWithRetry(ctx, "editMessageReplyMarkup", func() error {
			return e.api.EditMessageButtons(ctx, chatID, d.MessageID, organize(d.NewButtons))
		})
		return outcome{messageID: d.MessageID, err: err}
	default:
		e.logger.WarnwCtx(ctx, "Edit with neither text nor buttons, nothing to do",
			"message_id", d.MessageID,
		)
		return outcome{messageID: d.MessageID}
	}
}

// sendWithRetry retries transient failures with bounded exponential
// backoff. Formatting rejections and other permanent errors surface
// immediately.
func (e *Engine) sendWithRetry(ctx context.Context, operation string, op func() error) error {
	return retry.RetryWithCallback(ctx, e.policy, op,
		func(attempt int, err error, nextDelay time.Duration) {
			metrics.RetryAttemptsTotal.WithLabelValues(operation).Inc()
			e.logger.WarnwCtx(ctx, "Retrying platform call",
				"operation", operation,
				"attempt", attempt,
				"max_attempts", e.policy.MaxAttempts,
				"next_delay", nextDelay,
				"error", err,
			)
		})
}

// baseOptions builds send options with the keyboard laid out. A single
// flat row of buttons goes through the row organizer; producers that
// send explicit multi-row layouts keep them.
func baseOptions(buttons [][]models.Button, kb *models.ReplyKeyboard) telegram.SendOptions {
	return telegram.SendOptions{
		Buttons:       organize(buttons),
		ReplyKeyboard: kb,
	}
}

func organize(buttons [][]models.Button) [][]models.Button {
	if len(buttons) == 1 {
		return keyboard.Organize(buttons[0])
	}
	return buttons
}
