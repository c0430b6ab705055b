package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bastionpay/bastion/internal/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from model.TransactionStatus
		to   model.TransactionStatus
		want bool
	}{
		{"pending to processing", model.StatusPending, model.StatusProcessing, true},
		{"pending to failed", model.StatusPending, model.StatusFailed, true},
		{"pending to cancelled", model.StatusPending, model.StatusCancelled, true},
		{"pending to completed skips processing", model.StatusPending, model.StatusCompleted, false},
		{"processing to completed", model.StatusProcessing, model.StatusCompleted, true},
		{"processing to failed", model.StatusProcessing, model.StatusFailed, true},
		{"completed to refunded", model.StatusCompleted, model.StatusRefunded, true},
		{"completed to partially refunded", model.StatusCompleted, model.StatusPartiallyRefunded, true},
		{"completed to disputed", model.StatusCompleted, model.StatusDisputed, true},
		{"completed to chargeback", model.StatusCompleted, model.StatusChargeback, true},
		{"completed to pending is illegal", model.StatusCompleted, model.StatusPending, false},
		{"completed to completed is illegal", model.StatusCompleted, model.StatusCompleted, false},
		{"partially refunded to refunded", model.StatusPartiallyRefunded, model.StatusRefunded, true},
		{"partially refunded to disputed", model.StatusPartiallyRefunded, model.StatusDisputed, true},
		{"disputed resolves to completed", model.StatusDisputed, model.StatusCompleted, true},
		{"disputed resolves to chargeback", model.StatusDisputed, model.StatusChargeback, true},
		{"disputed to refunded is illegal", model.StatusDisputed, model.StatusRefunded, false},
		{"failed is terminal", model.StatusFailed, model.StatusPending, false},
		{"cancelled is terminal", model.StatusCancelled, model.StatusProcessing, false},
		{"refunded is terminal", model.StatusRefunded, model.StatusCompleted, false},
		{"chargeback is terminal", model.StatusChargeback, model.StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []model.TransactionStatus{
		model.StatusFailed,
		model.StatusCancelled,
		model.StatusRefunded,
		model.StatusChargeback,
	}
	for _, s := range terminal {
		assert.True(t, IsTerminal(s), "expected %s to be terminal", s)
	}

	live := []model.TransactionStatus{
		model.StatusPending,
		model.StatusProcessing,
		model.StatusCompleted,
		model.StatusPartiallyRefunded,
		model.StatusDisputed,
	}
	for _, s := range live {
		assert.False(t, IsTerminal(s), "expected %s not to be terminal", s)
	}
}

func TestStatusForEvent(t *testing.T) {
	status, ok := StatusForEvent(EventPaymentCompleted)
	assert.True(t, ok)
	assert.Equal(t, model.StatusCompleted, status)

	status, ok = StatusForEvent(EventDisputeResolved)
	assert.True(t, ok)
	assert.Equal(t, model.StatusCompleted, status)

	_, ok = StatusForEvent("payment.unknown")
	assert.False(t, ok)
}

func TestCounterpartForEvent(t *testing.T) {
	typ, ok := CounterpartForEvent(EventRefundCompleted)
	assert.True(t, ok)
	assert.Equal(t, model.TypeRefund, typ)

	typ, ok = CounterpartForEvent(EventPaymentChargeback)
	assert.True(t, ok)
	assert.Equal(t, model.TypeChargeback, typ)

	_, ok = CounterpartForEvent(EventPaymentCompleted)
	assert.False(t, ok)
}
