package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Model struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider types
type ProviderType string

const (
	ProviderYooMoney     ProviderType = "yoomoney"
	ProviderCardGateway  ProviderType = "card_gateway"
	ProviderCash         ProviderType = "cash"
	ProviderBankTransfer ProviderType = "bank_transfer"
)

// Payment method types
type MethodType string

const (
	MethodCard        MethodType = "card"
	MethodBankAccount MethodType = "bank_account"
	MethodWallet      MethodType = "wallet"
	MethodCash        MethodType = "cash"
	MethodCrypto      MethodType = "crypto"
)

// Transaction types
type TransactionType string

const (
	TypePayment    TransactionType = "payment"
	TypeRefund     TransactionType = "refund"
	TypeChargeback TransactionType = "chargeback"
	TypeDispute    TransactionType = "dispute"
	TypeTransfer   TransactionType = "transfer"
)

// Transaction statuses
type TransactionStatus string

const (
	StatusPending           TransactionStatus = "pending"
	StatusProcessing        TransactionStatus = "processing"
	StatusCompleted         TransactionStatus = "completed"
	StatusFailed            TransactionStatus = "failed"
	StatusCancelled         TransactionStatus = "cancelled"
	StatusRefunded          TransactionStatus = "refunded"
	StatusPartiallyRefunded TransactionStatus = "partially_refunded"
	StatusDisputed          TransactionStatus = "disputed"
	StatusChargeback        TransactionStatus = "chargeback"
)

// Escrow statuses
type EscrowStatus string

const (
	EscrowPending  EscrowStatus = "pending"
	EscrowFunded   EscrowStatus = "funded"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
	EscrowDisputed EscrowStatus = "disputed"
)

// PaymentProvider is an operator-maintained integration record. The engine
// treats it as read-only at transaction time.
type PaymentProvider struct {
	ID                  uuid.UUID       `json:"id" validate:"required"`
	Name                string          `json:"name" validate:"required,min=2,max=100"`
	ProviderType        ProviderType    `json:"provider_type" validate:"required,oneof=yoomoney card_gateway cash bank_transfer"`
	IsActive            bool            `json:"is_active"`
	SupportedCurrencies []string        `json:"supported_currencies" validate:"dive,len=3"`
	SupportedCountries  []string        `json:"supported_countries" validate:"dive,len=2"`
	Config              json.RawMessage `json:"config,omitempty"`
	Model
}

// PaymentMethod is a user's stored instrument. At most one method per user
// carries IsDefault.
type PaymentMethod struct {
	ID               uuid.UUID       `json:"id" validate:"required"`
	UserID           uuid.UUID       `json:"user_id" validate:"required"`
	ProviderID       uuid.UUID       `json:"provider_id" validate:"required"`
	MethodType       MethodType      `json:"method_type" validate:"required,oneof=card bank_account wallet cash crypto"`
	ProviderMethodID string          `json:"provider_method_id,omitempty"`
	IsDefault        bool            `json:"is_default"`
	IsVerified       bool            `json:"is_verified"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	Model
}

// PaymentTransaction is the central entity. Created once per attempt,
// mutated only through guarded status transitions, never deleted.
type PaymentTransaction struct {
	ID                    uuid.UUID         `json:"id" validate:"required"`
	UserID                uuid.UUID         `json:"user_id" validate:"required"`
	OrderID               *uuid.UUID        `json:"order_id,omitempty"`
	ProviderID            uuid.UUID         `json:"provider_id" validate:"required"`
	PaymentMethodID       *uuid.UUID        `json:"payment_method_id,omitempty"`
	Type                  TransactionType   `json:"type" validate:"required,oneof=payment refund chargeback dispute transfer"`
	Amount                int64             `json:"amount" validate:"required,gt=0"`
	Currency              string            `json:"currency" validate:"required,len=3"`
	ExchangeRate          *decimal.Decimal  `json:"exchange_rate,omitempty"`
	AmountOriginal        *int64            `json:"amount_original,omitempty"`
	CurrencyOriginal      *string           `json:"currency_original,omitempty"`
	Status                TransactionStatus `json:"status" validate:"required"`
	ProviderTransactionID string            `json:"provider_transaction_id,omitempty"`
	ProviderResponse      json.RawMessage   `json:"provider_response,omitempty"`
	FailureReason         string            `json:"failure_reason,omitempty"`
	Metadata              json.RawMessage   `json:"metadata,omitempty"`
	ProcessedAt           *time.Time        `json:"processed_at,omitempty"`
	Model
}

// EscrowAccount holds buyer funds for one order until release conditions
// are met. One account per order.
type EscrowAccount struct {
	ID                uuid.UUID    `json:"id" validate:"required"`
	OrderID           uuid.UUID    `json:"order_id" validate:"required"`
	BuyerID           uuid.UUID    `json:"buyer_id" validate:"required"`
	SellerID          uuid.UUID    `json:"seller_id" validate:"required"`
	Amount            int64        `json:"amount" validate:"required,gt=0"`
	Currency          string       `json:"currency" validate:"required,len=3"`
	Status            EscrowStatus `json:"status" validate:"required"`
	ReleaseConditions string       `json:"release_conditions,omitempty"`
	FundedAt          *time.Time   `json:"funded_at,omitempty"`
	ReleasedAt        *time.Time   `json:"released_at,omitempty"`
	ReleasedBy        *uuid.UUID   `json:"released_by,omitempty"`
	Model
}

// ExchangeRate is one rate record for a currency pair. Multiple records may
// exist per pair over time; lookup selects by validity window.
type ExchangeRate struct {
	ID           uuid.UUID       `json:"id" validate:"required"`
	FromCurrency string          `json:"from_currency" validate:"required,len=3"`
	ToCurrency   string          `json:"to_currency" validate:"required,len=3"`
	Rate         decimal.Decimal `json:"rate" validate:"required"`
	Provider     string          `json:"provider" validate:"required"`
	ValidFrom    time.Time       `json:"valid_from" validate:"required"`
	ValidUntil   *time.Time      `json:"valid_until,omitempty"`
	Model
}

// WebhookEvent is one row of the idempotency ledger. The unique constraint
// on (provider_id, webhook_id) is what serializes duplicate deliveries.
type WebhookEvent struct {
	ID         int64           `json:"id" validate:"required"`
	ProviderID uuid.UUID       `json:"provider_id" validate:"required"`
	WebhookID  string          `json:"webhook_id" validate:"required"`
	EventType  string          `json:"event_type" validate:"required"`
	Payload    json.RawMessage `json:"payload" validate:"required"`
	CreatedAt  time.Time       `json:"created_at"`
}

// TransactionOutbox rows are relayed to Kafka by the outbox relay.
type TransactionOutbox struct {
	ID            int64           `json:"id" validate:"required"`
	EventType     string          `json:"event_type" validate:"required"`
	Payload       json.RawMessage `json:"payload" validate:"required"`
	PartitionKey  string          `json:"partition_key" validate:"required"`
	Status        string          `json:"status" validate:"required,oneof=pending processed"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Model
}
