package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/bastionpay/bastion/internal/config"
)

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, _ uuid.UUID, eventType string, _ json.RawMessage) {
	n.events = append(n.events, eventType)
}

func testProviders() config.ProvidersConfig {
	var p config.ProvidersConfig
	p.YooMoney.WebhookSecret = "ym-secret"
	p.CardGateway.WebhookSecret = "cg-secret"
	p.Cash.WebhookSecret = "cash-secret"
	p.BankTransfer.WebhookSecret = "wire-secret"
	return p
}

func postWebhook(h *GatewayHandler, providerType string, body []byte, signature string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/"+providerType, bytes.NewReader(body))
	if signature != "" {
		r.Header.Set(SignatureHeader, signature)
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("providerType", providerType)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	h.HandleWebhook(w, r)
	return w
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHandleWebhookFailsClosed(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewGatewayHandler(nil, testProviders(), notifier)
	body := []byte(`{"webhook_id":"wh-1","event_type":"payment.completed","data":{"transaction_id":"x"}}`)

	t.Run("missing signature is unauthorized", func(t *testing.T) {
		w := postWebhook(h, "yoomoney", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret is unauthorized and raises a security event", func(t *testing.T) {
		w := postWebhook(h, "yoomoney", body, signBody(body, "cg-secret"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, notifier.events, "security.webhook_signature_invalid")
	})

	t.Run("tampered body is unauthorized", func(t *testing.T) {
		sig := signBody(body, "ym-secret")
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-2] = 'y'
		w := postWebhook(h, "yoomoney", tampered, sig)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown provider type is not found", func(t *testing.T) {
		w := postWebhook(h, "paypal", body, signBody(body, "ym-secret"))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed envelope is bad request", func(t *testing.T) {
		junk := []byte(`{"nope":true}`)
		w := postWebhook(h, "yoomoney", junk, signBody(junk, "ym-secret"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
