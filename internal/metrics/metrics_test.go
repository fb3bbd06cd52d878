package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCountersIncrement(t *testing.T) {
	m := New(Config{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLogout)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("login success = %d, want 2", got)
	}
	if got := m.Value(MetricLogout); got != 1 {
		t.Fatalf("logout = %d, want 1", got)
	}
	if got := m.Value(MetricLoginFailure); got != 0 {
		t.Fatalf("login failure = %d, want 0", got)
	}
}

func TestDisabledMetricsNoOp(t *testing.T) {
	m := New(Config{Enabled: false})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricSessionCheckLatency, time.Millisecond)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled counter = %d, want 0", got)
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot not empty: %+v", snap)
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricSessionCheckLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics returned a value")
	}
	if m.Enabled() {
		t.Fatal("nil metrics reported enabled")
	}
}

func TestOutOfRangeIDIgnored(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricIDCount)
	m.Inc(MetricID(1000))
	if got := m.Value(MetricIDCount); got != 0 {
		t.Fatalf("out-of-range counter = %d", got)
	}
}

func TestLatencyHistogramBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})

	samples := []time.Duration{
		3 * time.Millisecond,
		8 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		900 * time.Millisecond,
	}
	for _, d := range samples {
		m.Observe(MetricSessionCheckLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricSessionCheckLatency]
	if len(buckets) != 8 {
		t.Fatalf("bucket count = %d, want 8", len(buckets))
	}
	for i, count := range buckets {
		if count != 1 {
			t.Fatalf("bucket %d = %d, want 1 (%v)", i, count, buckets)
		}
	}
}

func TestLatencyDisabledByDefault(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Observe(MetricSessionCheckLatency, time.Millisecond)

	if _, ok := m.Snapshot().Histograms[MetricSessionCheckLatency]; ok {
		t.Fatal("latency recorded without EnableLatency")
	}
}

func TestObserveIgnoresNonLatencyIDs(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})
	m.Observe(MetricLoginSuccess, time.Millisecond)

	if _, ok := m.Snapshot().Histograms[MetricLoginSuccess]; ok {
		t.Fatal("histogram recorded for a counter id")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := New(Config{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricSessionCheckSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionCheckSuccess); got != workers*perWorker {
		t.Fatalf("counter = %d, want %d", got, workers*perWorker)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricSessionCheckLatency, time.Millisecond)

	snap := m.Snapshot()
	snap.Counters[MetricLoginSuccess] = 99
	snap.Histograms[MetricSessionCheckLatency][0] = 99

	if got := m.Value(MetricLoginSuccess); got != 1 {
		t.Fatalf("live counter mutated through snapshot: %d", got)
	}
	fresh := m.Snapshot()
	if fresh.Histograms[MetricSessionCheckLatency][0] == 99 {
		t.Fatal("live histogram mutated through snapshot")
	}
}
