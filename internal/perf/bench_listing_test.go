package perf

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/odyssey-erp/commerce-admin/internal/listing"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/roles"
)

func syntheticRoles(n int) []rbac.Role {
	out := make([]rbac.Role, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, rbac.Role{
			ID:          int64(i + 1),
			Name:        fmt.Sprintf("role-%05d", (i*7919)%n),
			Description: "synthetic",
			Permissions: []rbac.Permission{{ID: 1, Name: "read.all"}},
		})
	}
	return out
}

func BenchmarkListingFilterSortPage(b *testing.B) {
	records := syntheticRoles(10_000)
	q := listing.Query{Limit: 50, Offset: 100, SortOrder: listing.SortDesc, Filters: map[string]string{"name": "role-0"}}
	src := roles.Source()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := listing.Run(records, q, src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkListingFlatten(b *testing.B) {
	records := syntheticRoles(10_000)
	src := roles.Source()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := listing.Run(records, listing.Query{Flatten: true}, src); err != nil {
			b.Fatal(err)
		}
	}
}

func TestListingLatencyBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("latency budget skipped in short mode")
	}
	records := syntheticRoles(10_000)
	src := roles.Source()
	q := listing.Query{Limit: 50, SortOrder: listing.SortAsc, Filters: map[string]string{"name": "role"}}

	samples := make([]time.Duration, 0, 20)
	for i := 0; i < cap(samples); i++ {
		start := time.Now()
		env, err := listing.Run(records, q, src)
		samples = append(samples, time.Since(start))
		if err != nil {
			t.Fatal(err)
		}
		if len(env.Data) != 50 {
			t.Fatalf("expected a full page, got %d", len(env.Data))
		}
	}
	if p95 := percentile95(samples); p95 > 500*time.Millisecond {
		t.Fatalf("listing latency regression: p95=%s", p95)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (len(sorted)*95+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func TestPercentile95(t *testing.T) {
	samples := make([]time.Duration, 0, 20)
	for i := 1; i <= 20; i++ {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}
	if got := percentile95(samples); got != 19*time.Millisecond {
		t.Fatalf("p95 = %s", got)
	}
	if got := percentile95(nil); got != 0 {
		t.Fatalf("empty p95 = %s", got)
	}
}
