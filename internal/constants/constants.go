package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	MQTTKeepAlive      = 30 * time.Second
	MQTTConnectTimeout = 10 * time.Second
	MQTTQoS            = 1
)

const (
	PipeReopenDelay = 500 * time.Millisecond
)

// Telegram Bot API payload limits.
const (
	TextMessageLimit  = 4096
	MediaCaptionLimit = 1024
)

// ButtonRowBudget is the display-character budget for one row of an
// inline keyboard before the layout organizer opens the next row.
const ButtonRowBudget = 26

const (
	DefaultInboundTopic  = "bifrost.in"
	DefaultOutboundTopic = "bifrost.out"
	DefaultStatusTopic   = "bifrost.status"
)

const (
	DefaultStorageDir = "./files/in"
)

// Defaults for the outbound delivery retry policy (overridable via
// delivery.retry in the config file).
const (
	DefaultRetryMaxAttempts     = 3
	DefaultRetryInitialInterval = 1 * time.Second
	DefaultRetryMaxInterval     = 30 * time.Second
	DefaultRetryMultiplier      = 2.0
)

const (
	DownloadTimeout = 60 * time.Second
	APICallTimeout  = 30 * time.Second
)

// TelegramSendRate caps Bot API send calls (the platform enforces
// roughly 30 messages per second globally per bot).
const (
	TelegramSendRate  = 25
	TelegramSendBurst = 5
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	PlatformTelegram = "telegram"
)

const (
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailed  = "failed"
	DeliveryStatusPartial = "partial"
)
