package broker

import (
	"fmt"

	"bifrost/internal/config"
	"bifrost/internal/logger"
)

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log), nil
	case "mqtt":
		return NewMQTTClient(cfg.MQTT, log)
	case "pipe":
		return NewPipeProducer(log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaConsumer(cfg.Kafka, log), nil
	case "mqtt":
		return NewMQTTClient(cfg.MQTT, log)
	case "pipe":
		return NewPipeConsumer(cfg.Pipe.Path, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
