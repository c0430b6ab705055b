package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/bastionpay/bastion/internal/kafka"
	"github.com/bastionpay/bastion/internal/middleware"
	"github.com/bastionpay/bastion/pkg/types"
)

// Dispatcher publishes user-facing notification events to Kafka. Delivery is
// fire-and-forget: a broker outage never blocks or rolls back the payment
// path that triggered the notification.
type Dispatcher struct {
	producer *kafka.Producer
}

func NewDispatcher(producer *kafka.Producer) *Dispatcher {
	return &Dispatcher{producer: producer}
}

func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, eventType string, payload json.RawMessage) {
	logger := middleware.GetLogger(ctx)

	event := types.NotificationEvent{
		UserID:    userID.String(),
		EventType: eventType,
		Payload:   payload,
	}
	value, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Msg("Failed to encode notification")
		return
	}

	d.producer.PublishAsync(ctx, kafka.TopicNotificationDispatch, []byte(userID.String()), value)
}
