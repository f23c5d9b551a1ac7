package delivery

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"bifrost/internal/constants"
	"bifrost/pkg/models"
)

// reportStatus publishes the terminal outcome to the status topic,
// keyed by chat id like every other per-chat stream. Status reporting
// is best effort; a failed report is logged and forgotten.
func (e *Engine) reportStatus(ctx context.Context, msg models.OutboundMessage, out outcome) {
	if e.producer == nil || e.statusTopic == "" {
		return
	}

	status := constants.DeliveryStatusSuccess
	errText := ""
	if out.err != nil {
		errText = out.err.Error()
		status = constants.DeliveryStatusFailed
		if out.chunksDelivered > 0 {
			status = constants.DeliveryStatusPartial
		}
	}

	report := models.DeliveryStatus{
		TraceID:             msg.TraceID,
		ChatID:              msg.Target.ChatID,
		MessageID:           out.messageID,
		Status:              status,
		Error:               errText,
		Timestamp:           time.Now().UTC(),
		OriginalMessageType: msg.MessageType.Tag(),
		ChunksDelivered:     out.chunksDelivered,
		ChunksTotal:         out.chunksTotal,
		PlainTextFallback:   out.fallback,
	}

	payload, err := json.Marshal(report)
	if err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to marshal delivery status", "error", err)
		return
	}

	key := []byte(strconv.FormatInt(msg.Target.ChatID, 10))
	if err := e.producer.Publish(ctx, e.statusTopic, key, payload); err != nil {
		e.logger.WarnwCtx(ctx, "Failed to publish delivery status",
			"error", err,
			"topic", e.statusTopic,
		)
	}
}
