package delivery

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/constants"
	"bifrost/internal/logger"
	"bifrost/internal/telegram"
	bridgeerrors "bifrost/pkg/errors"
	"bifrost/pkg/models"
	"bifrost/pkg/retry"
)

type sentText struct {
	chatID int64
	text   string
	opts   telegram.SendOptions
}

// fakeAPI records calls and lets tests script SendText behavior.
type fakeAPI struct {
	mu         sync.Mutex
	texts      []sentText
	methods    []string
	onSendText func(call int, text string, opts telegram.SendOptions) (int, error)
}

func (f *fakeAPI) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)
}

func (f *fakeAPI) SendText(_ context.Context, chatID int64, text string, opts telegram.SendOptions) (int, error) {
	f.mu.Lock()
	f.texts = append(f.texts, sentText{chatID: chatID, text: text, opts: opts})
	call := len(f.texts)
	f.methods = append(f.methods, "sendMessage")
	hook := f.onSendText
	f.mu.Unlock()

	if hook != nil {
		return hook(call, text, opts)
	}
	return 100 + call, nil
}

func (f *fakeAPI) SendPhoto(_ context.Context, _ int64, _, caption string, _ telegram.SendOptions) (int, error) {
	f.record("sendPhoto:" + caption)
	return 1, nil
}

func (f *fakeAPI) SendAudio(_ context.Context, _ int64, _, _ string, _ telegram.AudioMeta, _ telegram.SendOptions) (int, error) {
	f.record("sendAudio")
	return 1, nil
}

func (f *fakeAPI) SendVoice(_ context.Context, _ int64, _, _ string, _ int, _ telegram.SendOptions) (int, error) {
	f.record("sendVoice")
	return 1, nil
}

func (f *fakeAPI) SendVideo(_ context.Context, _ int64, _, _ string, _ telegram.VideoMeta, _ telegram.SendOptions) (int, error) {
	f.record("sendVideo")
	return 1, nil
}

func (f *fakeAPI) SendVideoNote(_ context.Context, _ int64, _ string, _, _ int, _ telegram.SendOptions) (int, error) {
	f.record("sendVideoNote")
	return 1, nil
}

func (f *fakeAPI) SendDocument(_ context.Context, _ int64, _, _, _ string, _ telegram.SendOptions) (int, error) {
	f.record("sendDocument")
	return 1, nil
}

func (f *fakeAPI) SendSticker(_ context.Context, _ int64, _, _ string, _ telegram.SendOptions) (int, error) {
	f.record("sendSticker")
	return 1, nil
}

func (f *fakeAPI) SendAnimation(_ context.Context, _ int64, _, _ string, _ telegram.VideoMeta, _ telegram.SendOptions) (int, error) {
	f.record("sendAnimation")
	return 1, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, _ int64, _ int, _ string, _ telegram.SendOptions) error {
	f.record("editMessageText")
	return nil
}

func (f *fakeAPI) EditMessageButtons(_ context.Context, _ int64, _ int, _ [][]models.Button) error {
	f.record("editMessageReplyMarkup")
	return nil
}

func (f *fakeAPI) DeleteMessage(_ context.Context, _ int64, _ int) error {
	f.record("deleteMessage")
	return nil
}

func (f *fakeAPI) SendTyping(_ context.Context, _ int64) error {
	f.record("sendChatAction")
	return nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, _ string) error {
	f.record("answerCallbackQuery")
	return nil
}

type fakeProducer struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
}

func (p *fakeProducer) Publish(_ context.Context, topic string, _, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func (p *fakeProducer) lastStatus(t *testing.T) models.DeliveryStatus {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.payloads)
	var status models.DeliveryStatus
	require.NoError(t, json.Unmarshal(p.payloads[len(p.payloads)-1], &status))
	return status
}

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      1.5,
	}
}

func newTestEngine(api *fakeAPI, producer *fakeProducer) *Engine {
	return New(api, producer, "status", testPolicy(), logger.NopLogger())
}

func textMessage(text, parseMode string) models.OutboundMessage {
	return models.OutboundMessage{
		TraceID: "trace-1",
		MessageType: models.OutboundVariant{Text: &models.TextMessageData{
			Text:      text,
			ParseMode: parseMode,
		}},
		Timestamp: time.Now().UTC(),
		Target:    models.MessageTarget{Platform: "telegram", ChatID: 42},
	}
}

func TestDeliverPlainTextFallback(t *testing.T) {
	api := &fakeAPI{}
	api.onSendText = func(call int, _ string, opts telegram.SendOptions) (int, error) {
		if opts.ParseMode != "" {
			return 0, bridgeerrors.ErrFormattingRejected
		}
		return 200, nil
	}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	engine.Deliver(context.Background(), textMessage("Version 1.2 shipped. Enjoy!", "Markdown"))

	require.Len(t, api.texts, 2, "exactly one formatted attempt and one plain retry")
	assert.Contains(t, api.texts[0].text, "\\.", "first attempt carries escaped markup")
	assert.Equal(t, "Version 1.2 shipped. Enjoy!", api.texts[1].text)
	assert.Equal(t, "", api.texts[1].opts.ParseMode)

	status := producer.lastStatus(t)
	assert.Equal(t, constants.DeliveryStatusSuccess, status.Status)
	assert.True(t, status.PlainTextFallback)
	assert.Equal(t, 200, status.MessageID)
}

func TestDeliverFallbackAlsoFailing(t *testing.T) {
	api := &fakeAPI{}
	api.onSendText = func(int, string, telegram.SendOptions) (int, error) {
		return 0, bridgeerrors.ErrFormattingRejected
	}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	engine.Deliver(context.Background(), textMessage("broken.", "Markdown"))

	require.Len(t, api.texts, 2, "no second automatic fallback")
	status := producer.lastStatus(t)
	assert.Equal(t, constants.DeliveryStatusFailed, status.Status)
	assert.True(t, status.PlainTextFallback)
}

func TestDeliverRetriesTransientErrors(t *testing.T) {
	api := &fakeAPI{}
	api.onSendText = func(call int, _ string, _ telegram.SendOptions) (int, error) {
		if call < 3 {
			return 0, bridgeerrors.ErrTransient
		}
		return 300, nil
	}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	engine.Deliver(context.Background(), textMessage("hello", ""))

	assert.Len(t, api.texts, 3)
	status := producer.lastStatus(t)
	assert.Equal(t, constants.DeliveryStatusSuccess, status.Status)
	assert.False(t, status.PlainTextFallback)
}

func TestDeliverExhaustsRetries(t *testing.T) {
	api := &fakeAPI{}
	api.onSendText = func(int, string, telegram.SendOptions) (int, error) {
		return 0, bridgeerrors.ErrTransient
	}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	engine.Deliver(context.Background(), textMessage("hello", ""))

	assert.Len(t, api.texts, 3, "attempt ceiling honored")
	assert.Equal(t, constants.DeliveryStatusFailed, producer.lastStatus(t).Status)
}

func TestDeliverChunkedAbortsOnMidSequenceFailure(t *testing.T) {
	api := &fakeAPI{}
	api.onSendText = func(call int, _ string, _ telegram.SendOptions) (int, error) {
		if call == 2 {
			return 0, bridgeerrors.ErrTimeout.AsFatal()
		}
		return call, nil
	}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	long := strings.Repeat("word ", 2000) // ~10k chars, three chunks
	engine.Deliver(context.Background(), textMessage(long, ""))

	require.Len(t, api.texts, 2, "remaining chunks aborted after the failure")
	status := producer.lastStatus(t)
	assert.Equal(t, constants.DeliveryStatusPartial, status.Status)
	assert.Equal(t, 1, status.ChunksDelivered)
	assert.Equal(t, 3, status.ChunksTotal)
}

func TestDeliverChunkedKeyboardOnFinalChunk(t *testing.T) {
	api := &fakeAPI{}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	msg := textMessage(strings.Repeat("word ", 1000), "")
	msg.MessageType.Text.Buttons = [][]models.Button{{{Text: "OK", CallbackData: "ok"}}}
	engine.Deliver(context.Background(), msg)

	require.Greater(t, len(api.texts), 1)
	for _, sent := range api.texts[:len(api.texts)-1] {
		assert.Empty(t, sent.opts.Buttons)
	}
	assert.NotEmpty(t, api.texts[len(api.texts)-1].opts.Buttons)
}

func TestDeliverMediaCaptionOverflow(t *testing.T) {
	api := &fakeAPI{}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	caption := strings.Repeat("cap ", 400) // 1600 chars, two chunks
	msg := models.OutboundMessage{
		TraceID: "trace-2",
		MessageType: models.OutboundVariant{Image: &models.ImageMessageData{
			ImagePath: "/tmp/a.jpg",
			Caption:   caption,
		}},
		Target: models.MessageTarget{Platform: "telegram", ChatID: 42},
	}
	engine.Deliver(context.Background(), msg)

	require.Len(t, api.methods, 2)
	assert.True(t, strings.HasPrefix(api.methods[0], "sendPhoto:"))
	assert.Equal(t, "sendMessage", api.methods[1])

	status := producer.lastStatus(t)
	assert.Equal(t, constants.DeliveryStatusSuccess, status.Status)
	assert.Equal(t, 2, status.ChunksTotal)
}

func TestDeliverDispatchesControlVariants(t *testing.T) {
	tests := []struct {
		name    string
		variant models.OutboundVariant
		want    string
	}{
		{
			name:    "delete",
			variant: models.OutboundVariant{Delete: &models.DeleteMessageData{MessageID: 9}},
			want:    "deleteMessage",
		},
		{
			name:    "typing",
			variant: models.OutboundVariant{Typing: &models.TypingMessageData{}},
			want:    "sendChatAction",
		},
		{
			name:    "edit text",
			variant: models.OutboundVariant{Edit: &models.EditMessageData{MessageID: 9, NewText: "new"}},
			want:    "editMessageText",
		},
		{
			name:    "edit buttons only",
			variant: models.OutboundVariant{Edit: &models.EditMessageData{MessageID: 9, NewButtons: [][]models.Button{{{Text: "B", CallbackData: "b"}}}}},
			want:    "editMessageReplyMarkup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			producer := &fakeProducer{}
			engine := newTestEngine(api, producer)

			engine.Deliver(context.Background(), models.OutboundMessage{
				TraceID:     "trace-3",
				MessageType: tt.variant,
				Target:      models.MessageTarget{Platform: "telegram", ChatID: 42},
			})

			require.Len(t, api.methods, 1)
			assert.Equal(t, tt.want, api.methods[0])
			assert.Equal(t, constants.DeliveryStatusSuccess, producer.lastStatus(t).Status)
		})
	}
}

func TestDeliverEditWithoutContentIsNoOp(t *testing.T) {
	api := &fakeAPI{}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	engine.Deliver(context.Background(), models.OutboundMessage{
		TraceID:     "trace-4",
		MessageType: models.OutboundVariant{Edit: &models.EditMessageData{MessageID: 9}},
		Target:      models.MessageTarget{Platform: "telegram", ChatID: 42},
	})

	assert.Empty(t, api.methods)
	assert.Equal(t, constants.DeliveryStatusSuccess, producer.lastStatus(t).Status)
}

func TestHandleMalformedPayload(t *testing.T) {
	api := &fakeAPI{}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	err := engine.Handle(context.Background(), nil, []byte("not json at all"))
	require.Error(t, err)
	assert.ErrorIs(t, err, bridgeerrors.ErrMalformedPayload)
	assert.Empty(t, api.texts)
	assert.Empty(t, api.methods)
}

func TestHandleLegacyFlatPayload(t *testing.T) {
	api := &fakeAPI{}
	producer := &fakeProducer{}
	engine := newTestEngine(api, producer)

	err := engine.Handle(context.Background(), nil, []byte(`{"chat_id": 42, "text": "legacy"}`))
	require.NoError(t, err)
	require.Len(t, api.texts, 1)
	assert.Equal(t, "legacy", api.texts[0].text)
	assert.Equal(t, int64(42), api.texts[0].chatID)
}
