// Package telegram wraps the Bot API behind the narrow surface the
// ingestion and delivery pipelines need.
package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	tu "github.com/mymmrac/telego/telegoutil"

	bridgeerrors "bifrost/pkg/errors"
	"bifrost/pkg/models"
)

// API is the platform call surface the delivery engine dispatches
// over. All media methods take a local file path and return the
// platform message id of what was sent.
type API interface {
	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) (int, error)
	SendPhoto(ctx context.Context, chatID int64, path, caption string, opts SendOptions) (int, error)
	SendAudio(ctx context.Context, chatID int64, path, caption string, meta AudioMeta, opts SendOptions) (int, error)
	SendVoice(ctx context.Context, chatID int64, path, caption string, duration int, opts SendOptions) (int, error)
	SendVideo(ctx context.Context, chatID int64, path, caption string, meta VideoMeta, opts SendOptions) (int, error)
	SendVideoNote(ctx context.Context, chatID int64, path string, duration, length int, opts SendOptions) (int, error)
	SendDocument(ctx context.Context, chatID int64, path, filename, caption string, opts SendOptions) (int, error)
	SendSticker(ctx context.Context, chatID int64, path, emoji string, opts SendOptions) (int, error)
	SendAnimation(ctx context.Context, chatID int64, path, caption string, meta VideoMeta, opts SendOptions) (int, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts SendOptions) error
	EditMessageButtons(ctx context.Context, chatID int64, messageID int, buttons [][]models.Button) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendTyping(ctx context.Context, chatID int64) error
	AnswerCallbackQuery(ctx context.Context, queryID string) error
}

// AudioMeta carries the optional audio tags the platform displays.
type AudioMeta struct {
	Duration  int
	Performer string
	Title     string
}

// VideoMeta carries optional video dimensions and playback hints.
type VideoMeta struct {
	Duration          int
	Width             int
	Height            int
	SupportsStreaming bool
}

// SendOptions are the cross-variant send parameters.
type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	ThreadID       int
	Buttons        [][]models.Button
	ReplyKeyboard  *models.ReplyKeyboard
}

// replyMarkup renders the options' keyboard, inline buttons taking
// precedence over a reply keyboard.
func (o SendOptions) replyMarkup() telego.ReplyMarkup {
	if len(o.Buttons) > 0 {
		return inlineMarkup(o.Buttons)
	}
	if o.ReplyKeyboard != nil {
		return replyKeyboardMarkup(o.ReplyKeyboard)
	}
	return nil
}

func inlineMarkup(rows [][]models.Button) *telego.InlineKeyboardMarkup {
	keyboard := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.CallbackData))
		}
		keyboard = append(keyboard, buttons)
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

func replyKeyboardMarkup(kb *models.ReplyKeyboard) *telego.ReplyKeyboardMarkup {
	keyboard := make([][]telego.KeyboardButton, 0, len(kb.Keyboard))
	for _, row := range kb.Keyboard {
		buttons := make([]telego.KeyboardButton, 0, len(row))
		for _, b := range row {
			btn := telego.KeyboardButton{
				Text:            b.Text,
				RequestContact:  b.RequestContact,
				RequestLocation: b.RequestLocation,
			}
			if b.RequestPoll != nil {
				btn.RequestPoll = &telego.KeyboardButtonPollType{Type: b.RequestPoll.PollType}
			}
			if b.WebApp != nil {
				btn.WebApp = &telego.WebAppInfo{URL: b.WebApp.URL}
			}
			buttons = append(buttons, btn)
		}
		keyboard = append(keyboard, buttons)
	}
	return &telego.ReplyKeyboardMarkup{
		Keyboard:              keyboard,
		IsPersistent:          kb.IsPersistent,
		ResizeKeyboard:        kb.ResizeKeyboard,
		OneTimeKeyboard:       kb.OneTimeKeyboard,
		InputFieldPlaceholder: kb.InputFieldPlaceholder,
		Selective:             kb.Selective,
	}
}

// parseModeFor maps the lenient wire parse mode onto what the Bot API
// accepts. Markdown input has already been escaped, so it goes out as
// MarkdownV2.
func parseModeFor(mode string) string {
	switch mode {
	case "Markdown", "MarkdownV2":
		return telego.ModeMarkdownV2
	case "HTML":
		return telego.ModeHTML
	}
	return ""
}

// classifyError translates a Bot API failure into the bridge failure
// taxonomy: entity-parse 400s become formatting rejections (they
// trigger the plain-text fallback), 429 and 5xx are transient, other
// 4xx are permanent.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *telegoapi.Error
	if !errors.As(err, &apiErr) {
		// Transport-level failure, assume the network hiccuped.
		return bridgeerrors.ErrTransient.WithCause(err)
	}

	switch {
	case apiErr.ErrorCode == 400 && strings.Contains(strings.ToLower(apiErr.Description), "can't parse entities"):
		return bridgeerrors.ErrFormattingRejected.WithCause(err)
	case apiErr.ErrorCode == 429:
		return bridgeerrors.ErrTransient.WithCause(err).WithDetail("retry_after", retryAfter(apiErr))
	case apiErr.ErrorCode >= 500:
		return bridgeerrors.ErrTransient.WithCause(err)
	default:
		return bridgeerrors.NewError("TELEGRAM_API_ERROR", apiErr.Description, apiErr.ErrorCode).
			WithCause(err).
			AsFatal()
	}
}

func retryAfter(apiErr *telegoapi.Error) int {
	if apiErr.Parameters != nil {
		return int(apiErr.Parameters.RetryAfter)
	}
	return 0
}
