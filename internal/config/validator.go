package config

import (
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateTelegram(cfg.Telegram); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateStorage(cfg.Storage); err != nil {
		errors = append(errors, err)
	}

	if err := validateRetry("delivery.retry", cfg.Delivery.Retry); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateTelegram(cfg TelegramConfig) error {
	if cfg.Token == "" {
		return &ValidationError{
			Field:   "telegram.token",
			Message: "bot token is required",
		}
	}

	if cfg.RateLimit <= 0 {
		return &ValidationError{
			Field:   "telegram.rate_limit",
			Message: "rate limit must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type == "" {
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	}

	switch cfg.Type {
	case "kafka":
		return validateKafka(cfg.Kafka)
	case "mqtt":
		return validateMQTT(cfg.MQTT)
	case "pipe":
		return validatePipe(cfg.Pipe)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, mqtt, pipe)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.InboundTopic == "" || cfg.OutboundTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka",
			Message: "inbound_topic and outbound_topic are required",
		}
	}

	return nil
}

func validateMQTT(cfg MQTTConfig) error {
	if cfg.BrokerURL == "" {
		return &ValidationError{
			Field:   "broker.mqtt.broker_url",
			Message: "MQTT broker URL is required",
		}
	}

	if cfg.QoS > 2 {
		return &ValidationError{
			Field:   "broker.mqtt.qos",
			Message: fmt.Sprintf("QoS must be 0, 1 or 2, got %d", cfg.QoS),
		}
	}

	if cfg.InboundTopic == "" || cfg.OutboundTopic == "" {
		return &ValidationError{
			Field:   "broker.mqtt",
			Message: "inbound_topic and outbound_topic are required",
		}
	}

	return nil
}

func validatePipe(cfg PipeConfig) error {
	if cfg.Path == "" {
		return &ValidationError{
			Field:   "broker.pipe.path",
			Message: "named pipe path is required",
		}
	}

	return nil
}

func validateStorage(cfg StorageConfig) error {
	if cfg.Dir == "" {
		return &ValidationError{
			Field:   "storage.dir",
			Message: "storage directory is required",
		}
	}

	return nil
}

func validateRetry(field string, cfg RetryConfig) error {
	if cfg.MaxAttempts < 1 {
		return &ValidationError{
			Field:   field + ".max_attempts",
			Message: "max_attempts must be at least 1",
		}
	}

	if cfg.InitialInterval < 0 || cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   field,
			Message: "retry intervals must be non-negative",
		}
	}

	if cfg.Multiplier < 1 {
		return &ValidationError{
			Field:   field + ".multiplier",
			Message: "multiplier must be at least 1",
		}
	}

	return nil
}
