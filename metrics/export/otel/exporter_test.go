package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/tokenauth"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	counters map[tokenauth.MetricID]uint64
	latency  []uint64
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() tokenauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := tokenauth.MetricsSnapshot{
		Counters:   make(map[tokenauth.MetricID]uint64, len(f.counters)),
		Histograms: map[tokenauth.MetricID][]uint64{},
	}
	for k, v := range f.counters {
		out.Counters[k] = v
	}
	if f.latency != nil {
		out.Histograms[tokenauth.MetricAuthenticateLatency] = append([]uint64(nil), f.latency...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// collectInt64 flattens int64 points into name or name{le} keys.
func collectInt64(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := map[string]int64{}
	record := func(name string, attrs attribute.Set, v int64) {
		if le, ok := attrs.Value("le"); ok {
			name += "{le=" + le.AsString() + "}"
		}
		out[name] = v
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					record(m.Name, dp.Attributes, dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					record(m.Name, dp.Attributes, dp.Value)
				}
			}
		}
	}
	return out
}

func TestExporterPublishesSnapshotValues(t *testing.T) {
	reader, provider := newMeter()
	src := &fakeSource{
		counters: map[tokenauth.MetricID]uint64{
			tokenauth.MetricLoginSuccess:   3,
			tokenauth.MetricReissueFailure: 1,
		},
		latency: []uint64{1, 1, 1, 1, 1, 1, 1, 1},
		dropped: 4,
	}

	exp, err := NewExporterFromSource(provider.Meter("tokenauth-test"), src)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	got := collectInt64(t, reader)
	checks := map[string]int64{
		"tokenauth_login_success_total":                           3,
		"tokenauth_reissue_failure_total":                         1,
		"tokenauth_logout_total":                                  0,
		"tokenauth_audit_dropped_total":                           4,
		"tokenauth_authenticate_latency_seconds_bucket{le=0.005}": 1,
		"tokenauth_authenticate_latency_seconds_bucket{le=0.1}":   5,
		"tokenauth_authenticate_latency_seconds_bucket{le=+Inf}":  8,
		"tokenauth_authenticate_latency_seconds_count":            8,
	}
	for name, want := range checks {
		if got[name] != want {
			t.Fatalf("%s = %d, want %d", name, got[name], want)
		}
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newMeter()
	if _, err := NewExporterFromSource(provider.Meter("tokenauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollect(t *testing.T) {
	reader, provider := newMeter()
	src := &fakeSource{counters: map[tokenauth.MetricID]uint64{tokenauth.MetricLoginSuccess: 1}}

	exp, err := NewExporterFromSource(provider.Meter("tokenauth-test"), src)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.counters[tokenauth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
