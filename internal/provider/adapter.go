package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/model"
)

// ErrTimeout marks an ambiguous provider call: the request may or may not
// have reached the rail. The transaction manager leaves the transaction
// where it is and waits for a webhook or reconciliation instead of forcing
// a failure.
var ErrTimeout = errors.New("provider call timed out")

// ProcessRequest is the provider-agnostic dispatch contract.
type ProcessRequest struct {
	TransactionID   uuid.UUID
	Amount          int64
	Currency        string
	PaymentMethodID *uuid.UUID
	Metadata        json.RawMessage
}

// ProcessResult is what an adapter hands back on success. Redirect rails
// return a CheckoutURL and Status processing; manual rails return no URL and
// Status pending.
type ProcessResult struct {
	ProviderRef string
	CheckoutURL string
	Status      model.TransactionStatus
	Raw         json.RawMessage
}

// Adapter is implemented by each of the four rails. Resolution happens once
// per transaction at creation time; the binding stays stable even if the
// provider record changes afterwards.
type Adapter interface {
	Type() model.ProviderType
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
}

// Registry holds the closed set of adapters, injected at construction.
type Registry struct {
	adapters map[model.ProviderType]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[model.ProviderType]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Type()] = a
	}
	return &Registry{adapters: m}
}

// Resolve returns the adapter for a provider type.
func (r *Registry) Resolve(pt model.ProviderType) (Adapter, error) {
	a, ok := r.adapters[pt]
	if !ok {
		return nil, errs.ErrProviderUnavailable
	}
	return a, nil
}
