package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	UpdatesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_updates_received_total",
			Help: "Total number of platform updates received (count)",
		},
		[]string{"kind"},
	)

	InboundPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_inbound_published_total",
			Help: "Total number of unified inbound messages published to the broker (count)",
		},
		[]string{"kind", "status"},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_deliveries_total",
			Help: "Total number of outbound delivery attempts by terminal outcome (count)",
		},
		[]string{"variant", "outcome"},
	)

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bifrost_delivery_duration_ms",
			Help:    "End-to-end duration of outbound deliveries in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"variant"},
	)

	PlainTextFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_plain_text_fallback_total",
			Help: "Total number of plain-text fallback retries after formatting rejection (count)",
		},
		[]string{"outcome"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"operation"},
	)

	ChunkedDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_chunked_deliveries_total",
			Help: "Total number of deliveries that required chunking (count)",
		},
		[]string{"outcome"},
	)

	AttachmentDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_attachment_downloads_total",
			Help: "Total number of attachment downloads (count)",
		},
		[]string{"kind", "status"},
	)

	AttachmentDownloadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bifrost_attachment_download_duration_ms",
			Help:    "Duration of attachment downloads in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"kind"},
	)

	BrokerMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_broker_messages_read_total",
			Help: "Total number of messages read from the broker (count)",
		},
		[]string{"transport", "topic"},
	)

	BrokerMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_broker_messages_written_total",
			Help: "Total number of messages written to the broker (count)",
		},
		[]string{"transport", "topic"},
	)

	BrokerWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bifrost_broker_write_duration_ms",
			Help:    "Duration of broker writes in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"transport", "topic"},
	)

	MalformedPayloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_malformed_payloads_total",
			Help: "Total number of broker payloads dropped as unparseable (count)",
		},
		[]string{"topic"},
	)

	TelegramAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bifrost_telegram_api_calls_total",
			Help: "Total number of Telegram Bot API calls (count)",
		},
		[]string{"method", "status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bifrost_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)
)

func RegisterIngestMetrics() {
	prometheus.MustRegister(UpdatesReceivedTotal)
	prometheus.MustRegister(InboundPublishedTotal)
	prometheus.MustRegister(AttachmentDownloadsTotal)
	prometheus.MustRegister(AttachmentDownloadDuration)
}

func RegisterDeliveryMetrics() {
	prometheus.MustRegister(DeliveriesTotal)
	prometheus.MustRegister(DeliveryDuration)
	prometheus.MustRegister(PlainTextFallbackTotal)
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(ChunkedDeliveriesTotal)
	prometheus.MustRegister(TelegramAPICallsTotal)
	prometheus.MustRegister(CircuitBreakerState)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(BrokerMessagesReadTotal)
	prometheus.MustRegister(BrokerMessagesWrittenTotal)
	prometheus.MustRegister(BrokerWriteDuration)
	prometheus.MustRegister(MalformedPayloadsTotal)
}
