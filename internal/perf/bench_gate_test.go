package perf

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/odyssey-erp/commerce-admin/internal/jobs"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/token"
)

type staticFinder rbac.Principal

func (f staticFinder) FindByEmail(context.Context, string) (rbac.Principal, error) {
	return rbac.Principal(f), nil
}

func BenchmarkAuthenticationGate(b *testing.B) {
	secret := base64.StdEncoding.EncodeToString([]byte("perf-gate-benchmark-secret-32byt"))
	tokens, err := token.NewService(secret, time.Hour)
	if err != nil {
		b.Fatal(err)
	}
	raw, err := tokens.Issue(token.Subject{Identifier: "admin@example.com", Permissions: []string{"read.all", "write.all"}})
	if err != nil {
		b.Fatal(err)
	}
	mw := rbac.Middleware{Tokens: tokens, Principals: staticFinder{ID: 1, Email: "admin@example.com"}}
	handler := mw.Authenticate(mw.RequirePermission("read.all")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	req := httptest.NewRequest(http.MethodGet, "/api/roles", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			b.Fatalf("unexpected status %d", rr.Code)
		}
	}
}

func TestWelcomeJobReliabilityMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	for i := 0; i < 19; i++ {
		_ = metrics.Track("mail:welcome").End(nil)
	}
	_ = metrics.Track("mail:welcome").End(context.DeadlineExceeded)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	success := metricValue(t, families, "admin_jobs_total", map[string]string{"job": "mail:welcome", "status": "success"})
	failure := metricValue(t, families, "admin_jobs_total", map[string]string{"job": "mail:welcome", "status": "failure"})
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("welcome job success ratio too low: %f", ratio)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) && fam.GetType() == dto.MetricType_COUNTER {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok {
			if pair.GetValue() != want {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}
