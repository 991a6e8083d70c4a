package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/stemkit-identity/internal/models"
)

type metricsStub struct{}

func (metricsStub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("auth_operations_total 1\n"))
	})
}

func (metricsStub) Snapshot() models.SystemMetrics {
	return models.SystemMetrics{RequestsTotal: 3, AuthSuccesses: 2}
}

type pingStub struct{ err error }

func (p pingStub) PingContext(ctx context.Context) error { return p.err }

func metricsContext(path string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, path, nil)
	return c, w
}

func TestMetricsHandlerEndpoints(t *testing.T) {
	h := NewMetricsHandler(metricsStub{}, pingStub{})

	c, w := metricsContext("/metrics")
	h.Prometheus(c)
	assert.Contains(t, w.Body.String(), "auth_operations_total")

	c, w = metricsContext("/admin/metrics")
	h.Summary(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requests_total":3`)

	c, w = metricsContext("/health")
	h.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsHandlerHealthDegraded(t *testing.T) {
	h := NewMetricsHandler(nil, pingStub{err: errors.New("connection refused")})

	c, w := metricsContext("/health")
	h.Health(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = metricsContext("/metrics")
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, c.IsAborted())

	c, w = metricsContext("/admin/metrics")
	h.Summary(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
