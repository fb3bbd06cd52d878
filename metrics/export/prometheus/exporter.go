package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	swapcore "github.com/kekpa/swap-frontend-sub003"
	"github.com/kekpa/swap-frontend-sub003/metrics/export/internaldefs"
)

// ErrNilSource is returned when no metrics source is provided.
var ErrNilSource = errors.New("nil metrics source")

type metricsSource interface {
	MetricsSnapshot() swapcore.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   swapcore.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   swapcore.MetricID
	desc *prometheus.Desc
}

// Collector exposes core metrics as a prometheus.Collector. Values are
// read from a fresh snapshot on every scrape; the collector itself
// holds no state.
type Collector struct {
	source       metricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *prometheus.Desc
}

// NewCollector builds a Collector reading from the given Core.
func NewCollector(core *swapcore.Core) (*Collector, error) {
	return NewCollectorFromSource(core)
}

// NewCollectorFromSource builds a Collector from any snapshot source.
func NewCollectorFromSource(source metricsSource) (*Collector, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	c := &Collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(
			"swapcore_audit_dropped_total",
			"Dropped audit events due to dispatcher backpressure.",
			nil, nil,
		),
	}

	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}

	return c, nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	for _, hd := range c.histograms {
		ch <- hd.desc
	}
	ch <- c.auditDropped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.source.MetricsSnapshot()

	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(
			cd.desc,
			prometheus.CounterValue,
			float64(snapshot.Counters[cd.id]),
		)
	}

	for _, hd := range c.histograms {
		raw := internaldefs.NormalizeBuckets(snapshot.Histograms[hd.id])
		cumulative := internaldefs.CumulativeBuckets(raw)

		buckets := make(map[float64]uint64, len(internaldefs.HistogramBounds))
		for i, bound := range internaldefs.HistogramBounds {
			buckets[bound] = cumulative[i]
		}
		count := cumulative[len(cumulative)-1]

		// The internal histogram tracks bucket counts only; the sum is
		// reported as zero.
		ch <- prometheus.MustNewConstHistogram(hd.desc, count, 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(
		c.auditDropped,
		prometheus.CounterValue,
		float64(c.source.AuditDropped()),
	)
}

var _ prometheus.Collector = (*Collector)(nil)
