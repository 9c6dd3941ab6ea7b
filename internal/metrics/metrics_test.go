package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/tenants/{tenantID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	req := httptest.NewRequest(http.MethodGet, "/tenants/abc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestErrors.WithLabelValues("GET", "/tenants/{tenantID}", "403")))
}

func TestCounters(t *testing.T) {
	m := New()

	m.GateDenied("owner_admin")
	m.GateDenied("owner_admin")
	m.GuardDenied("revoke")
	m.Invite("invited")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.gateDenials.WithLabelValues("owner_admin")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.guardDenials.WithLabelValues("revoke")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.invites.WithLabelValues("invited")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.GateDenied("member")
		m.GuardDenied("change_role")
		m.Invite("existing")
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.Invite("existing")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "muni_admin_invites_total"))
}
