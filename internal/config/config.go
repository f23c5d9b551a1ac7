package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Telegram       TelegramConfig
	Broker         BrokerConfig
	Storage        StorageConfig
	Delivery       DeliveryConfig
	Logging        LoggingConfig
	CircuitBreaker CircuitBreakerConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type TelegramConfig struct {
	Token       string  `mapstructure:"token"`
	RateLimit   float64 `mapstructure:"rate_limit"`
	RateBurst   int     `mapstructure:"rate_burst"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	MQTT  MQTTConfig  `mapstructure:"mqtt"`
	Pipe  PipeConfig  `mapstructure:"pipe"`
}

type KafkaConfig struct {
	Brokers       []string    `mapstructure:"brokers"`
	GroupID       string      `mapstructure:"group_id"`
	InboundTopic  string      `mapstructure:"inbound_topic"`
	OutboundTopic string      `mapstructure:"outbound_topic"`
	StatusTopic   string      `mapstructure:"status_topic"`
	Retry         RetryConfig `mapstructure:"retry"`
}

type MQTTConfig struct {
	BrokerURL     string `mapstructure:"broker_url"`
	ClientID      string `mapstructure:"client_id"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	QoS           byte   `mapstructure:"qos"`
	InboundTopic  string `mapstructure:"inbound_topic"`
	OutboundTopic string `mapstructure:"outbound_topic"`
	StatusTopic   string `mapstructure:"status_topic"`
}

type PipeConfig struct {
	Path string `mapstructure:"path"`
}

type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

type DeliveryConfig struct {
	Retry RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

// InboundTopic returns the topic inbound messages are published to for
// the configured transport. The named-pipe transport has no topics.
func (c BrokerConfig) InboundTopic() string {
	switch c.Type {
	case "mqtt":
		return c.MQTT.InboundTopic
	default:
		return c.Kafka.InboundTopic
	}
}

func (c BrokerConfig) OutboundTopic() string {
	switch c.Type {
	case "mqtt":
		return c.MQTT.OutboundTopic
	default:
		return c.Kafka.OutboundTopic
	}
}

func (c BrokerConfig) StatusTopic() string {
	switch c.Type {
	case "mqtt":
		return c.MQTT.StatusTopic
	default:
		return c.Kafka.StatusTopic
	}
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
