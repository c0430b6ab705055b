package kafka

import (
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Topic names for all Kafka topics used by the engine
const (
	TopicPaymentCreated   = "bastion.payment.created"
	TopicPaymentCompleted = "bastion.payment.completed"
	TopicPaymentFailed    = "bastion.payment.failed"

	TopicWebhookPending = "bastion.webhook.pending"

	TopicEscrowStatus = "bastion.escrow.status"

	TopicNotificationDispatch = "bastion.notification.dispatch"

	TopicDLQ = "bastion.dlq"
)

// Event types for outbox rows
const (
	EventPaymentCreated     = "bastion.payment.created"
	EventPaymentCompleted   = "bastion.payment.completed"
	EventPaymentFailed      = "bastion.payment.failed"
	EventWebhookReceived    = "bastion.webhook.received"
	EventEscrowStatusMoved  = "bastion.escrow.status.moved"
	EventNotificationQueued = "bastion.notification.queued"
)

// Consumer group names
const (
	GroupWebhookWorker      = "bastion.webhook.worker"
	GroupNotificationWorker = "bastion.notification.worker"
)

type Config struct {
	Brokers           []string
	ProducerTimeout   time.Duration
	RequiredAcks      kgo.Acks
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	MaxPollRecords    int
	MaxRetries        int
	RetryBackoff      time.Duration
}

func DefaultConfig(brokers []string) *Config {
	return &Config{
		Brokers:           brokers,
		ProducerTimeout:   10 * time.Second,
		RequiredAcks:      kgo.AllISRAcks(),
		SessionTimeout:    10 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		MaxPollRecords:    100,
		MaxRetries:        5,
		RetryBackoff:      1 * time.Second,
	}
}
