package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lockelide"

var (
	commitsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "commits_total"),
		"Transactions committed by elision scopes.",
		[]string{"scope"}, nil)
	abortsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "aborts_total"),
		"Transaction attempts aborted, by cause.",
		[]string{"scope", "cause"}, nil)
	fallbacksDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "fallbacks_total"),
		"Scopes that acquired their fallback lock, by reason.",
		[]string{"scope", "reason"}, nil)
	fencesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "fence_waits_total"),
		"Waits for a held fallback lock after a contention abort.",
		[]string{"scope"}, nil)
)

// Collector exports the counters of a Registry as Prometheus metrics. The
// counters are read at scrape time.
type Collector struct {
	reg *Registry
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for reg.
func NewCollector(reg *Registry) *Collector {
	return &Collector{reg: reg}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- commitsDesc
	ch <- abortsDesc
	ch <- fallbacksDesc
	ch <- fencesDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.reg.Snapshots() {
		ch <- prometheus.MustNewConstMetric(commitsDesc, prometheus.CounterValue, float64(s.Commits), s.Name)
		ch <- prometheus.MustNewConstMetric(fencesDesc, prometheus.CounterValue, float64(s.Fences), s.Name)
		for _, cause := range Causes {
			ch <- prometheus.MustNewConstMetric(abortsDesc, prometheus.CounterValue,
				float64(s.Aborts[cause]), s.Name, cause)
		}
		for _, r := range Reasons {
			ch <- prometheus.MustNewConstMetric(fallbacksDesc, prometheus.CounterValue,
				float64(s.Fallbacks[r]), s.Name, string(r))
		}
	}
}
