package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("result", "activated"),
		attribute.String("user_id", "456"),
		attribute.String("direction", "credit"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "user_id" {
			t.Fatalf("expected user_id to be dropped")
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordLedgerEntry(context.Background(), 10, "adjustment")
	m.RecordActivation(context.Background(), "activated")
	m.RecordSync(context.Background(), "ok", 1, 2)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "creditdesk-test"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordPayment(context.Background(), "manual")
	m.RecordWebhookEvent(context.Background(), "user.created", "ok")
}

func TestHTTPMetricsMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	router := gin.New()
	router.Use(GinMiddleware(m))
	router.GET("/api/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/users/1", nil))
	}

	count := testutil.ToFloat64(m.requests.WithLabelValues("/api/users/:id", http.MethodGet, "200"))
	assert.Equal(t, float64(2), count)
}
