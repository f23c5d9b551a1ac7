package broker

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"bifrost/internal/config"
	"bifrost/internal/constants"
	"bifrost/internal/logger"
	"bifrost/pkg/metrics"
)

// MQTTClient implements both Producer and Consumer over one broker
// connection. MQTT has no partition keys; ordering across a topic is
// whatever the broker's QoS gives us.
type MQTTClient struct {
	client mqtt.Client
	qos    byte
	logger logger.Logger
}

func NewMQTTClient(cfg config.MQTTConfig, log logger.Logger) (*MQTTClient, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetKeepAlive(constants.MQTTKeepAlive).
		SetConnectTimeout(constants.MQTTConnectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnw("MQTT connection lost, reconnecting", "error", err)
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Infow("MQTT connected", "broker_url", cfg.BrokerURL)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(constants.MQTTConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s failed: %w", cfg.BrokerURL, err)
	}

	return &MQTTClient{client: client, qos: cfg.QoS, logger: log}, nil
}

func (c *MQTTClient) Publish(ctx context.Context, topic string, _ []byte, payload []byte) error {
	start := time.Now()
	token := c.client.Publish(topic, c.qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish mqtt message: %w", err)
	}

	metrics.BrokerMessagesWrittenTotal.WithLabelValues("mqtt", topic).Inc()
	metrics.BrokerWriteDuration.WithLabelValues("mqtt", topic).
		Observe(float64(time.Since(start).Milliseconds()))
	return nil
}

func (c *MQTTClient) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	token := c.client.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		metrics.BrokerMessagesReadTotal.WithLabelValues("mqtt", topic).Inc()
		if err := handler(ctx, nil, msg.Payload()); err != nil {
			c.logger.ErrorwCtx(ctx, "Failed to process message",
				"error", err,
				"topic", msg.Topic(),
			)
		}
	})

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	c.logger.InfowCtx(ctx, "Started consuming", "topic", topic)
	<-ctx.Done()
	return ctx.Err()
}

// Probe reports whether the client currently holds a broker
// connection. Paho reconnects in the background, so a down connection
// here means the broker has been unreachable for a while.
func (c *MQTTClient) Probe(_ context.Context) error {
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt connection down")
	}
	return nil
}

func (c *MQTTClient) Close() error {
	c.client.Disconnect(uint(constants.ShutdownTimeout.Milliseconds()))
	return nil
}
