package types

import (
	"encoding/json"
	"time"
)

// ProviderWebhookEvent is the provider-agnostic envelope every adapter's
// callback is normalized into. WebhookID is the provider-assigned delivery
// identifier used for idempotency.
type ProviderWebhookEvent struct {
	WebhookID string           `json:"webhook_id" validate:"required"`
	EventType string           `json:"event_type" validate:"required"`
	Data      WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	TransactionID         string     `json:"transaction_id" validate:"required,uuid4"`
	ProviderTransactionID string     `json:"provider_transaction_id,omitempty"`
	Amount                int64      `json:"amount,omitempty"`
	Currency              string     `json:"currency,omitempty"`
	Reason                string     `json:"reason,omitempty"`
	OccurredAt            *time.Time `json:"occurred_at,omitempty"`
}

// WebhookJob is what the ingestion gateway stores in the outbox and the
// webhook worker consumes. Payload is the raw provider body; the worker
// re-parses it so the idempotency decision happens next to the mutation.
type WebhookJob struct {
	ProviderID string          `json:"provider_id"`
	WebhookID  string          `json:"webhook_id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	Signature  string          `json:"signature,omitempty"`
}
