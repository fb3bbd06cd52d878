package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	swapcore "github.com/kekpa/swap-frontend-sub003"
)

type fakeSource struct {
	snapshot swapcore.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() swapcore.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                      { return f.dropped }

func newFakeSource() *fakeSource {
	return &fakeSource{
		snapshot: swapcore.MetricsSnapshot{
			Counters: map[swapcore.MetricID]uint64{
				swapcore.MetricLoginSuccess:         3,
				swapcore.MetricProfileSwitchAborted: 1,
			},
			Histograms: map[swapcore.MetricID][]uint64{
				swapcore.MetricSessionCheckLatency: {1, 2, 0, 0, 0, 0, 0, 1},
			},
		},
		dropped: 7,
	}
}

func TestNewCollectorRequiresSource(t *testing.T) {
	if _, err := NewCollectorFromSource(nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
}

func TestCollectorGathers(t *testing.T) {
	collector, err := NewCollectorFromSource(newFakeSource())
	if err != nil {
		t.Fatalf("NewCollectorFromSource failed: %v", err)
	}

	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(collector); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	byName := make(map[string]float64)
	var histCount uint64
	for _, fam := range families {
		switch fam.GetName() {
		case "swapcore_session_check_latency_seconds":
			histCount = fam.GetMetric()[0].GetHistogram().GetSampleCount()
		default:
			byName[fam.GetName()] = fam.GetMetric()[0].GetCounter().GetValue()
		}
	}

	if got := byName["swapcore_login_success_total"]; got != 3 {
		t.Fatalf("login success counter = %v, want 3", got)
	}
	if got := byName["swapcore_profile_switch_aborted_total"]; got != 1 {
		t.Fatalf("switch aborted counter = %v, want 1", got)
	}
	if got := byName["swapcore_audit_dropped_total"]; got != 7 {
		t.Fatalf("audit dropped counter = %v, want 7", got)
	}
	if histCount != 4 {
		t.Fatalf("histogram sample count = %d, want 4", histCount)
	}
}

func TestCollectorZeroSnapshot(t *testing.T) {
	collector, err := NewCollectorFromSource(&fakeSource{
		snapshot: swapcore.MetricsSnapshot{
			Counters:   map[swapcore.MetricID]uint64{},
			Histograms: map[swapcore.MetricID][]uint64{},
		},
	})
	if err != nil {
		t.Fatalf("NewCollectorFromSource failed: %v", err)
	}

	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(collector); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := registry.Gather(); err != nil {
		t.Fatalf("gather with empty snapshot failed: %v", err)
	}
}
