package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the value of the data point of sum metric name whose
// attribute key equals value. ok is false when no such point exists.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) (int64, bool) {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value, true
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value, true
		}
	}
	return 0, false
}

func TestRecordTurn(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, "arcade", 12)
	m.RecordTurn(ctx, "arcade", 3)
	m.RecordTurn(ctx, "normal", 40)

	rm := collect(t, reader)
	if got, ok := sumFor(t, rm, "jielong.turns.accepted", "mode", "arcade"); !ok || got != 2 {
		t.Errorf("arcade turns = %d (found %v), want 2", got, ok)
	}

	met := findMetric(rm, "jielong.candidates")
	if met == nil {
		t.Fatal("candidate histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[int64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("candidate histogram data = %+v", met.Data)
	}
	if hist.DataPoints[0].Count != 3 || hist.DataPoints[0].Sum != 55 {
		t.Errorf("candidate histogram count=%d sum=%d, want 3 and 55", hist.DataPoints[0].Count, hist.DataPoints[0].Sum)
	}
}

func TestRecordRejection(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRejection(ctx, "mismatch")
	m.RecordRejection(ctx, "mismatch")
	m.RecordRejection(ctx, "already_used")

	rm := collect(t, reader)
	if got, _ := sumFor(t, rm, "jielong.turns.rejected", "reason", "mismatch"); got != 2 {
		t.Errorf("mismatch rejections = %d, want 2", got)
	}
	if got, _ := sumFor(t, rm, "jielong.turns.rejected", "reason", "already_used"); got != 1 {
		t.Errorf("already_used rejections = %d, want 1", got)
	}
}

func TestSessionLifecycleGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSessionStart(ctx, "pk")
	m.RecordSessionStart(ctx, "normal")
	m.RecordSessionEnd(ctx, "pk", "timeout")

	rm := collect(t, reader)
	if got, _ := sumFor(t, rm, "jielong.active_sessions", "", ""); got != 1 {
		t.Errorf("active sessions = %d, want 1", got)
	}
	if got, _ := sumFor(t, rm, "jielong.sessions.ended", "outcome", "timeout"); got != 1 {
		t.Errorf("ended by timeout = %d, want 1", got)
	}
	if got, _ := sumFor(t, rm, "jielong.sessions.started", "mode", "normal"); got != 1 {
		t.Errorf("started normal = %d, want 1", got)
	}
}

func TestRecordRestrictionAndDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRestriction(ctx, "length_min")
	m.RecordSubmitDuration(ctx, 300*time.Microsecond)

	rm := collect(t, reader)
	if got, _ := sumFor(t, rm, "jielong.arcade.restrictions", "rule", "length_min"); got != 1 {
		t.Errorf("length_min restrictions = %d, want 1", got)
	}
	met := findMetric(rm, "jielong.submit.duration")
	if met == nil {
		t.Fatal("submit duration not found")
	}
	if hist, ok := met.Data.(metricdata.Histogram[float64]); !ok || hist.DataPoints[0].Count != 1 {
		t.Errorf("submit duration data = %+v, want one sample", met.Data)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different pointers")
	}
}
