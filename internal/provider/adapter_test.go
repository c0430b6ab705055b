package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastionpay/bastion/internal/config"
	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/model"
)

func processReq() ProcessRequest {
	return ProcessRequest{
		TransactionID: uuid.New(),
		Amount:        150000,
		Currency:      "RUB",
	}
}

func TestYooMoneyAdapter(t *testing.T) {
	t.Run("success returns confirmation url", func(t *testing.T) {
		var got yooMoneyPaymentRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(yooMoneyPaymentResponse{
				Status:          "success",
				PaymentID:       "ym-42",
				ConfirmationURL: "https://yoomoney.example/confirm/ym-42",
			})
		}))
		defer srv.Close()

		a := NewYooMoneyAdapter(config.ProviderEndpointConfig{BaseURL: srv.URL, SecretKey: "sk-test"}, time.Second)
		res, err := a.Process(context.Background(), processReq())
		require.NoError(t, err)

		assert.Equal(t, "1500.00", got.Amount)
		assert.Equal(t, "RUB", got.Currency)
		assert.Equal(t, "ym-42", res.ProviderRef)
		assert.Equal(t, "https://yoomoney.example/confirm/ym-42", res.CheckoutURL)
		assert.Equal(t, model.StatusProcessing, res.Status)
	})

	t.Run("declined payment is a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(yooMoneyPaymentResponse{Status: "refused", Error: "limit_exceeded"})
		}))
		defer srv.Close()

		a := NewYooMoneyAdapter(config.ProviderEndpointConfig{BaseURL: srv.URL}, time.Second)
		_, err := a.Process(context.Background(), processReq())
		assert.ErrorIs(t, err, errs.ErrProviderRejected)
	})

	t.Run("http error status is a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}))
		defer srv.Close()

		a := NewYooMoneyAdapter(config.ProviderEndpointConfig{BaseURL: srv.URL}, time.Second)
		_, err := a.Process(context.Background(), processReq())
		assert.ErrorIs(t, err, errs.ErrProviderRejected)
	})

	t.Run("slow provider maps to timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		a := NewYooMoneyAdapter(config.ProviderEndpointConfig{BaseURL: srv.URL}, 50*time.Millisecond)
		_, err := a.Process(context.Background(), processReq())
		assert.ErrorIs(t, err, ErrTimeout)
	})
}

func TestCardGatewayAdapter(t *testing.T) {
	t.Run("session created", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{
				"id":  "cs_123",
				"url": "https://gateway.example/pay/cs_123",
			})
		}))
		defer srv.Close()

		a := NewCardGatewayAdapter(config.ProviderEndpointConfig{BaseURL: srv.URL}, time.Second)
		res, err := a.Process(context.Background(), processReq())
		require.NoError(t, err)
		assert.Equal(t, "cs_123", res.ProviderRef)
		assert.Equal(t, model.StatusProcessing, res.Status)
	})

	t.Run("gateway error payload is a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "amount below minimum"},
			})
		}))
		defer srv.Close()

		a := NewCardGatewayAdapter(config.ProviderEndpointConfig{BaseURL: srv.URL}, time.Second)
		_, err := a.Process(context.Background(), processReq())
		assert.ErrorIs(t, err, errs.ErrProviderRejected)
	})
}

func TestManualAdapters(t *testing.T) {
	req := processReq()

	cash, err := NewCashAdapter().Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, cash.Status)
	assert.Equal(t, "cash-"+req.TransactionID.String(), cash.ProviderRef)
	assert.Empty(t, cash.CheckoutURL)

	wire, err := NewBankTransferAdapter().Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, wire.Status)
	assert.Equal(t, "wire-"+req.TransactionID.String(), wire.ProviderRef)
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry(NewCashAdapter(), NewBankTransferAdapter())

	a, err := r.Resolve(model.ProviderCash)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderCash, a.Type())

	_, err = r.Resolve(model.ProviderYooMoney)
	assert.ErrorIs(t, err, errs.ErrProviderUnavailable)
}

func TestMinorUnitsToDecimalString(t *testing.T) {
	assert.Equal(t, "1500.00", minorUnitsToDecimalString(150000))
	assert.Equal(t, "0.05", minorUnitsToDecimalString(5))
	assert.Equal(t, "10.50", minorUnitsToDecimalString(1050))
}
