package telegram

import (
	"context"
	"fmt"
	"os"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"bifrost/internal/config"
	"bifrost/internal/logger"
	"bifrost/pkg/circuitbreaker"
	bridgeerrors "bifrost/pkg/errors"
	"bifrost/pkg/metrics"
	"bifrost/pkg/models"
)

// Client is the telego-backed API implementation. Every send call
// goes through a shared rate limiter (the platform throttles bots at
// roughly 30 messages per second) and, when enabled, a circuit
// breaker.
type Client struct {
	bot     *telego.Bot
	limiter *rate.Limiter
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewClient(cfg config.TelegramConfig, cbCfg config.CircuitBreakerConfig, log logger.Logger) (*Client, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	c := &Client{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  log,
	}

	if cbCfg.Enabled {
		breakerCfg := circuitbreaker.DefaultConfig("telegram_api")
		if cbCfg.MaxRequests > 0 {
			breakerCfg.MaxRequests = cbCfg.MaxRequests
		}
		if cbCfg.Interval > 0 {
			breakerCfg.Interval = cbCfg.Interval
		}
		if cbCfg.Timeout > 0 {
			breakerCfg.Timeout = cbCfg.Timeout
		}
		if cbCfg.FailureRatio > 0 || cbCfg.MinRequests > 0 {
			ratio := cbCfg.FailureRatio
			if ratio <= 0 {
				ratio = 0.5
			}
			minRequests := cbCfg.MinRequests
			if minRequests == 0 {
				minRequests = 3
			}
			breakerCfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= minRequests && failureRatio >= ratio
			}
		}
		c.breaker = circuitbreaker.NewWrapper(breakerCfg)
	}

	return c, nil
}

// Bot exposes the underlying client for the update listener and the
// attachment downloader.
func (c *Client) Bot() *telego.Bot {
	return c.bot
}

// Me fetches the bot's own identity for inbound source stamping.
func (c *Client) Me(ctx context.Context) (*telego.User, error) {
	return c.bot.GetMe(ctx)
}

// call applies rate limiting, the breaker and error classification
// around one API method.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var err error
	if c.breaker != nil {
		_, err = c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return nil, fn()
		})
	} else {
		err = fn()
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.TelegramAPICallsTotal.WithLabelValues(method, status).Inc()

	return classifyError(err)
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string, opts SendOptions) (int, error) {
	params := tu.Message(tu.ID(chatID), text)
	if mode := parseModeFor(opts.ParseMode); mode != "" {
		params = params.WithParseMode(mode)
	}
	if opts.DisablePreview {
		params = params.WithLinkPreviewOptions(&telego.LinkPreviewOptions{IsDisabled: true})
	}
	if markup := opts.replyMarkup(); markup != nil {
		params = params.WithReplyMarkup(markup)
	}
	if opts.ThreadID != 0 {
		params = params.WithMessageThreadID(opts.ThreadID)
	}

	var msg *telego.Message
	err := c.call(ctx, "sendMessage", func() (err error) {
		msg, err = c.bot.SendMessage(ctx, params)
		return err
	})
	return messageID(msg), err
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, path, caption string, opts SendOptions) (int, error) {
	f, err := openMedia(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	params := tu.Photo(tu.ID(chatID), tu.File(f))
	if caption != "" {
		params = params.WithCaption(caption)
	}
	if markup := opts.replyMarkup(); markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	var msg *telego.Message
	err = c.call(ctx, "sendPhoto", func() (err error) {
		msg, err = c.bot.SendPhoto(ctx, params)
		return err
	})
	return messageID(msg), err
}

func (c *Client) SendAudio(ctx context.Context, chatID int64, path, caption string, meta AudioMeta, opts SendOptions) (int, error) {
	f, err := openMedia(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	params := tu.Audio(tu.ID(chatID), tu.File(f))
	if caption != "" {
		params = params.WithCaption(caption)
	}
	if meta.Duration > 0 {
		params = params.WithDuration(meta.Duration)
	}
	if meta.Performer != "" {
		params = params.WithPerformer(meta.Performer)
	}
	if meta.Title != "" {
		params = params.WithTitle(meta.Title)
	}
	if markup := opts.replyMarkup(); markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	var msg *telego.Message
	err = c.call(ctx, "sendAudio", func() (err error) {
		msg, err = c.bot.SendAudio(ctx, params)
		return err
	})
	return messageID(msg), err
}

func (c *Client) SendVoice(ctx context.Context, chatID int64, path, caption string, duration int, opts SendOptions) (int, error) {
	f, err := openMedia(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	params := tu.Voice(tu.ID(chatID), tu.File(f))
	if caption != "" {
		params = params.WithCaption(caption)
	}
	if duration > 0 {
		params = params.WithDuration(duration)
	}
	if markup := opts.replyMarkup(); markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	var msg *telego.Message
	err = c.call(ctx, "sendVoice", func() (err error) {
		msg, err = c.bot.SendVoice(ctx, params)
		return err
	})
	return messageID(msg), err
}

func (c *Client) SendVideo(ctx context.Context, chatID int64, path, caption string, meta VideoMeta, opts SendOptions) (int, error) {
	f, err := openMedia(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	params := tu.Video(tu.ID(chatID), tu.File(f))
	if caption != "" {
		params = params.WithCaption(caption)
	}
	if meta.Duration > 0 {
		params = params.WithDuration(meta.Duration)
	}
	if meta.Width > 0 {
		params = params.WithWidth(meta.Width)
	}
	if meta.Height > 0 {
		params = params.WithHeight(meta.Height)
	}
	if meta.SupportsStreaming {
		params = params.WithSupportsStreaming()
	}
	if markup := opts.replyMarkup(); markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	var msg *telego.Message
	err = c.call(ctx, "sendVideo", func() (err error) {
		msg, err = c.bot.SendVideo(ctx, params)
		return err
	})
	return messageID(msg), err
}

func (c *Client) SendVideoNote(ctx context.Context, chatID int64, path string, duration, length int, opts SendOptions) (int, error) {
	f, err := openMedia(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	params := tu.VideoNote(tu.ID(chatID), tu.File(f))
	if duration > 0 {
		params = params.WithDuration(duration)
	}
	if length > 0 {
		params = params.WithLength(length)
	}
	if markup := opts.replyMarkup(); markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	var msg *telego.Message
	err = c.call(ctx, "sendVideoNote", func() (err error) {
		msg, err = c.bot.SendVideoNote(ctx, params)
		return err
	})
	return messageID(msg), err
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, path, filename, caption string, opts SendOptions) (int, error) {
	f, err := openMedia(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	file := tu.File(f)
	if filename != "" {
		file = tu.File(tu.NameReader(f, filename))
	}

	params := tu.Document(tu.ID(chatID), file)
	if caption != "" {
		params = params.WithCaption(caption)
	}
	if markup := opts.replyMarkup(); markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	var msg *telego.Message
	err = c.call(ctx, "sendDocument", func() (err error) {
		msg, err = c.bot.SendDocument(ctx, params)
		return err
	})
	return messageID(msg), err
}

func (c *Client) SendSticker(ctx context.Context, chatID int64, path, emoji string, opts SendOptions) (int, error) {
	f, err := openMedia(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	params := tu.Sticker(tu.ID(chatID), tu.File(f))
	if emoji != "" {
		params = params.WithEmoji(emoji)
	}
	if markup := opts.replyMarkup(); markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	var msg *telego.Message
	err = c.call(ctx, "sendSticker", func() (err error) {
		msg, err = c.bot.SendSticker(ctx, params)
		return err
	})
	return messageID(msg), err
}

func (c *Client) SendAnimation(ctx context.Context, chatID int64, path, caption string, meta VideoMeta, opts SendOptions) (int, error) {
	f, err := openMedia(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	params := tu.Animation(tu.ID(chatID), tu.File(f))
	if caption != "" {
		params = params.WithCaption(caption)
	}
	if meta.Duration > 0 {
		params = params.WithDuration(meta.Duration)
	}
	if meta.Width > 0 {
		params = params.WithWidth(meta.Width)
	}
	if meta.Height > 0 {
		params = params.WithHeight(meta.Height)
	}
	if markup := opts.replyMarkup(); markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	var msg *telego.Message
	err = c.call(ctx, "sendAnimation", func() (err error) {
		msg, err = c.bot.SendAnimation(ctx, params)
		return err
	})
	return messageID(msg), err
}

func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts SendOptions) error {
	params := &telego.EditMessageTextParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Text:      text,
	}
	if mode := parseModeFor(opts.ParseMode); mode != "" {
		params.ParseMode = mode
	}
	if len(opts.Buttons) > 0 {
		params.ReplyMarkup = inlineMarkup(opts.Buttons)
	}

	return c.call(ctx, "editMessageText", func() error {
		_, err := c.bot.EditMessageText(ctx, params)
		return err
	})
}

func (c *Client) EditMessageButtons(ctx context.Context, chatID int64, messageID int, buttons [][]models.Button) error {
	params := &telego.EditMessageReplyMarkupParams{
		ChatID:      tu.ID(chatID),
		MessageID:   messageID,
		ReplyMarkup: inlineMarkup(buttons),
	}

	return c.call(ctx, "editMessageReplyMarkup", func() error {
		_, err := c.bot.EditMessageReplyMarkup(ctx, params)
		return err
	})
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.call(ctx, "deleteMessage", func() error {
		return c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    tu.ID(chatID),
			MessageID: messageID,
		})
	})
}

func (c *Client) SendTyping(ctx context.Context, chatID int64) error {
	return c.call(ctx, "sendChatAction", func() error {
		return c.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping))
	})
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID string) error {
	return c.call(ctx, "answerCallbackQuery", func() error {
		return c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
			CallbackQueryID: queryID,
		})
	})
}

// openMedia opens a local media file for upload. A path that cannot
// be opened is a permanent failure; retrying cannot make the file
// appear.
func openMedia(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, bridgeerrors.ErrNotFound.
			WithCause(err).
			WithDetail("path", path).
			AsFatal()
	}
	return f, nil
}

func messageID(msg *telego.Message) int {
	if msg == nil {
		return 0
	}
	return msg.MessageID
}
