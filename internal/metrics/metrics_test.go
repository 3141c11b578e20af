package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveWebhook(t *testing.T) {
	m := New()

	m.ObserveWebhook("payment", OutcomeAccepted, 10)
	m.ObserveWebhook("payment", OutcomeAccepted, 5)
	m.ObserveWebhook("payment", OutcomeBadSignature, 999)
	m.ObserveWebhook("transaction", OutcomeBadPayload, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.webhooks.WithLabelValues("payment", OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhooks.WithLabelValues("payment", OutcomeBadSignature)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhooks.WithLabelValues("transaction", OutcomeBadPayload)))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.amount.WithLabelValues("payment")), "rejected webhooks add no amount")
}

func TestSubscribers(t *testing.T) {
	m := New()

	m.SubscriberConnected()
	m.SubscriberConnected()
	m.SubscriberDisconnected()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscribers))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveWebhook("payment", OutcomeAccepted, 10)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `spw_webhooks_total{kind="payment",outcome="accepted"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
