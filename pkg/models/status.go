package models

import "time"

// DeliveryStatus is published to the status topic after every delivery
// attempt so producers can correlate outcomes via the original trace id.
type DeliveryStatus struct {
	TraceID             string    `json:"trace_id"`
	ChatID              int64     `json:"chat_id"`
	MessageID           int       `json:"message_id,omitempty"`
	Status              string    `json:"status"`
	Error               string    `json:"error,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
	OriginalMessageType string    `json:"original_message_type"`
	ChunksDelivered     int       `json:"chunks_delivered,omitempty"`
	ChunksTotal         int       `json:"chunks_total,omitempty"`
	PlainTextFallback   bool      `json:"plain_text_fallback,omitempty"`
}
