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

// YooMoneyAdapter speaks the wallet rail's payment creation API. It is a
// redirect flow: the caller sends the user to the confirmation URL, and the
// terminal outcome arrives later by webhook.
type YooMoneyAdapter struct {
	client *apiClient
}

func NewYooMoneyAdapter(cfg config.ProviderEndpointConfig, timeout time.Duration) *YooMoneyAdapter {
	return &YooMoneyAdapter{
		client: newAPIClient(cfg.BaseURL, cfg.SecretKey, timeout),
	}
}

func (a *YooMoneyAdapter) Type() model.ProviderType {
	return model.ProviderYooMoney
}

type yooMoneyPaymentRequest struct {
	Label    string          `json:"label"`
	Amount   string          `json:"amount"`
	Currency string          `json:"currency"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type yooMoneyPaymentResponse struct {
	Status          string `json:"status"`
	PaymentID       string `json:"payment_id"`
	ConfirmationURL string `json:"confirmation_url"`
	Error           string `json:"error,omitempty"`
}

func (a *YooMoneyAdapter) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	body := yooMoneyPaymentRequest{
		Label:    req.TransactionID.String(),
		Amount:   minorUnitsToDecimalString(req.Amount),
		Currency: req.Currency,
		Metadata: req.Metadata,
	}

	respBody, err := a.client.doRequest(ctx, http.MethodPost, "/payments", body)
	if err != nil {
		return nil, err
	}

	var resp yooMoneyPaymentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("%w: %s", errs.ErrProviderRejected, resp.Error)
	}

	return &ProcessResult{
		ProviderRef: resp.PaymentID,
		CheckoutURL: resp.ConfirmationURL,
		Status:      model.StatusProcessing,
		Raw:         respBody,
	}, nil
}

// minorUnitsToDecimalString renders integer minor units as "123.45" the way
// the wallet API expects.
func minorUnitsToDecimalString(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
