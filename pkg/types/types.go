package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	UserID          string          `json:"user_id" validate:"required,uuid4"`
	OrderID         string          `json:"order_id,omitempty" validate:"omitempty,uuid4"`
	ProviderID      string          `json:"provider_id" validate:"required,uuid4"`
	PaymentMethodID string          `json:"payment_method_id,omitempty" validate:"omitempty,uuid4"`
	Amount          int64           `json:"amount" validate:"required,gt=0"`
	Currency        string          `json:"currency" validate:"required,len=3"`
	ChargeCurrency  string          `json:"charge_currency,omitempty" validate:"omitempty,len=3"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

type CreatePaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	CheckoutURL   string `json:"checkout_url,omitempty"`
}

type RefundPaymentRequest struct {
	Amount     int64  `json:"amount" validate:"required,gt=0"`
	Reason     string `json:"reason,omitempty"`
	RefundedBy string `json:"refunded_by" validate:"required,uuid4"`
}

type ConfirmManualPaymentRequest struct {
	ConfirmedBy string `json:"confirmed_by" validate:"required,uuid4"`
}

type AddMethodRequest struct {
	UserID           string          `json:"user_id" validate:"required,uuid4"`
	ProviderID       string          `json:"provider_id" validate:"required,uuid4"`
	MethodType       string          `json:"method_type" validate:"required,oneof=card bank_account wallet cash crypto"`
	ProviderMethodID string          `json:"provider_method_id,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

type SetDefaultMethodRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid4"`
	MethodID string `json:"method_id" validate:"required,uuid4"`
}

type CreateEscrowRequest struct {
	OrderID           string `json:"order_id" validate:"required,uuid4"`
	BuyerID           string `json:"buyer_id" validate:"required,uuid4"`
	SellerID          string `json:"seller_id" validate:"required,uuid4"`
	Amount            int64  `json:"amount" validate:"required,gt=0"`
	Currency          string `json:"currency" validate:"required,len=3"`
	ReleaseConditions string `json:"release_conditions,omitempty"`
}

type EscrowActionRequest struct {
	ActorID string `json:"actor_id" validate:"required,uuid4"`
}

type ConvertRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	From   string `json:"from" validate:"required,len=3"`
	To     string `json:"to" validate:"required,len=3"`
	AsOf   string `json:"as_of,omitempty"`
}

type ConvertResponse struct {
	Amount int64           `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

type PutRateRequest struct {
	FromCurrency string          `json:"from_currency" validate:"required,len=3"`
	ToCurrency   string          `json:"to_currency" validate:"required,len=3"`
	Rate         decimal.Decimal `json:"rate" validate:"required"`
	Provider     string          `json:"provider" validate:"required"`
	ValidFrom    string          `json:"valid_from,omitempty"`
	ValidUntil   string          `json:"valid_until,omitempty"`
}

// NotificationEvent is the fire-and-forget payload handed to the
// notification dispatcher.
type NotificationEvent struct {
	UserID    string          `json:"user_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
