package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
)

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := metrics.New()
	m.OrdersCreated.Inc()
	m.PaymentPushes.WithLabelValues(metrics.OutcomeFailure).Inc()
	m.PaymentPushes.WithLabelValues(metrics.OutcomeFailure).Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PaymentPushes.WithLabelValues(metrics.OutcomeFailure)))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "marketplace_orders_created_total 1")
	assert.Contains(t, string(body), `marketplace_payment_pushes_total{outcome="failure"} 2`)
}

func TestMetrics_NewIsIndependent(t *testing.T) {
	// два реестра не должны паниковать при повторной регистрации
	a := metrics.New()
	b := metrics.New()
	a.ReelViews.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ReelViews))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ReelViews))
}
