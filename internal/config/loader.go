package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"bifrost/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", "10s")
	viper.SetDefault("server.write_timeout_seconds", "10s")

	viper.SetDefault("telegram.rate_limit", float64(constants.TelegramSendRate))
	viper.SetDefault("telegram.rate_burst", constants.TelegramSendBurst)

	viper.SetDefault("broker.type", "kafka")
	viper.SetDefault("broker.kafka.inbound_topic", constants.DefaultInboundTopic)
	viper.SetDefault("broker.kafka.outbound_topic", constants.DefaultOutboundTopic)
	viper.SetDefault("broker.kafka.status_topic", constants.DefaultStatusTopic)
	viper.SetDefault("broker.mqtt.qos", constants.MQTTQoS)
	viper.SetDefault("broker.mqtt.inbound_topic", constants.DefaultInboundTopic)
	viper.SetDefault("broker.mqtt.outbound_topic", constants.DefaultOutboundTopic)
	viper.SetDefault("broker.mqtt.status_topic", constants.DefaultStatusTopic)

	viper.SetDefault("storage.dir", constants.DefaultStorageDir)

	viper.SetDefault("delivery.retry.max_attempts", constants.DefaultRetryMaxAttempts)
	viper.SetDefault("delivery.retry.initial_interval", constants.DefaultRetryInitialInterval)
	viper.SetDefault("delivery.retry.max_interval", constants.DefaultRetryMaxInterval)
	viper.SetDefault("delivery.retry.multiplier", constants.DefaultRetryMultiplier)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func bindEnvVariables() {
	viper.BindEnv("telegram.token", "TELEGRAM_TOKEN")

	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.inbound_topic", "BROKER_KAFKA_INBOUND_TOPIC")
	viper.BindEnv("broker.kafka.outbound_topic", "BROKER_KAFKA_OUTBOUND_TOPIC")
	viper.BindEnv("broker.kafka.status_topic", "BROKER_KAFKA_STATUS_TOPIC")

	viper.BindEnv("broker.mqtt.broker_url", "BROKER_MQTT_BROKER_URL")
	viper.BindEnv("broker.mqtt.client_id", "BROKER_MQTT_CLIENT_ID")
	viper.BindEnv("broker.mqtt.username", "BROKER_MQTT_USERNAME")
	viper.BindEnv("broker.mqtt.password", "BROKER_MQTT_PASSWORD")

	viper.BindEnv("broker.pipe.path", "BROKER_PIPE_PATH")

	viper.BindEnv("storage.dir", "STORAGE_DIR")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	return nil
}
