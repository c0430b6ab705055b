package payment

import (
	"github.com/bastionpay/bastion/internal/model"
)

// legalTransitions is the closed transition set for payment transactions.
// Anything not listed here is rejected with ErrInvalidState, never coerced
// to the nearest legal state.
var legalTransitions = map[model.TransactionStatus][]model.TransactionStatus{
	model.StatusPending: {
		model.StatusProcessing,
		model.StatusFailed,
		model.StatusCancelled,
	},
	model.StatusProcessing: {
		model.StatusCompleted,
		model.StatusFailed,
		model.StatusCancelled,
	},
	model.StatusCompleted: {
		model.StatusRefunded,
		model.StatusPartiallyRefunded,
		model.StatusDisputed,
		model.StatusChargeback,
	},
	model.StatusPartiallyRefunded: {
		model.StatusRefunded,
		model.StatusDisputed,
	},
	model.StatusDisputed: {
		model.StatusCompleted,
		model.StatusChargeback,
	},
}

// CanTransition reports whether from -> to is a legal status transition.
func CanTransition(from, to model.TransactionStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leads out of the status.
func IsTerminal(status model.TransactionStatus) bool {
	return len(legalTransitions[status]) == 0
}

// Webhook event types and the statuses they drive the transaction towards.
const (
	EventPaymentCompleted  = "payment.completed"
	EventPaymentFailed     = "payment.failed"
	EventPaymentCancelled  = "payment.cancelled"
	EventPaymentDisputed   = "payment.disputed"
	EventDisputeResolved   = "payment.dispute_resolved"
	EventPaymentChargeback = "payment.chargeback"
	EventRefundCompleted   = "refund.completed"
	EventRefundPartial     = "refund.partial"
)

var eventStatuses = map[string]model.TransactionStatus{
	EventPaymentCompleted:  model.StatusCompleted,
	EventPaymentFailed:     model.StatusFailed,
	EventPaymentCancelled:  model.StatusCancelled,
	EventPaymentDisputed:   model.StatusDisputed,
	EventDisputeResolved:   model.StatusCompleted,
	EventPaymentChargeback: model.StatusChargeback,
	EventRefundCompleted:   model.StatusRefunded,
	EventRefundPartial:     model.StatusPartiallyRefunded,
}

// StatusForEvent maps a provider webhook event type to the target status.
func StatusForEvent(eventType string) (model.TransactionStatus, bool) {
	status, ok := eventStatuses[eventType]
	return status, ok
}

// counterpartTypes lists the reversal record appended alongside a transition,
// keyed by event type. Refunds and chargebacks never mutate the original
// amount; they add a new transaction referencing it.
var counterpartTypes = map[string]model.TransactionType{
	EventPaymentChargeback: model.TypeChargeback,
	EventRefundCompleted:   model.TypeRefund,
	EventRefundPartial:     model.TypeRefund,
}

// CounterpartForEvent returns the transaction type of the reversal record an
// event implies, if any.
func CounterpartForEvent(eventType string) (model.TransactionType, bool) {
	t, ok := counterpartTypes[eventType]
	return t, ok
}
