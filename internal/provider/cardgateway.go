package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bastionpay/bastion/internal/config"
	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/model"
)

// CardGatewayAdapter creates a hosted checkout session on a Stripe-style
// card gateway. Redirect flow like YooMoney; completion arrives by webhook.
type CardGatewayAdapter struct {
	client *apiClient
}

func NewCardGatewayAdapter(cfg config.ProviderEndpointConfig, timeout time.Duration) *CardGatewayAdapter {
	return &CardGatewayAdapter{
		client: newAPIClient(cfg.BaseURL, cfg.SecretKey, timeout),
	}
}

func (a *CardGatewayAdapter) Type() model.ProviderType {
	return model.ProviderCardGateway
}

type checkoutSessionRequest struct {
	ClientReference string          `json:"client_reference_id"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

type checkoutSessionResponse struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *CardGatewayAdapter) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	body := checkoutSessionRequest{
		ClientReference: req.TransactionID.String(),
		Amount:          req.Amount,
		Currency:        req.Currency,
		Metadata:        req.Metadata,
	}
	if req.PaymentMethodID != nil {
		body.PaymentMethod = req.PaymentMethodID.String()
	}

	respBody, err := a.client.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", body)
	if err != nil {
		return nil, err
	}

	var resp checkoutSessionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrProviderRejected, resp.Error.Message)
	}
	if resp.ID == "" || resp.URL == "" {
		return nil, fmt.Errorf("%w: gateway returned no session", errs.ErrProviderRejected)
	}

	return &ProcessResult{
		ProviderRef: resp.ID,
		CheckoutURL: resp.URL,
		Status:      model.StatusProcessing,
		Raw:         respBody,
	}, nil
}
