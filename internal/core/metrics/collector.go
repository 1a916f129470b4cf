package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = (*Collector)(nil)

// Collector 把 Reporter 的汇总导出为 Prometheus 指标
type Collector struct {
	reporter *Reporter

	active    *prometheus.Desc
	bytes     *prometheus.Desc
	sends     *prometheus.Desc
	chunks    *prometheus.Desc
	overflows *prometheus.Desc
	rate      *prometheus.Desc
}

// NewCollector 创建采集器
func NewCollector(r *Reporter, namespace string) *Collector {
	kind := []string{"kind"}
	return &Collector{
		reporter: r,
		active: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "active"),
			"Number of live secure transports.", kind, nil),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "bytes_total"),
			"Application bytes carried by secure transports.", []string{"kind", "direction"}, nil),
		sends: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "sends_total"),
			"Send attempts by outcome.", []string{"kind", "outcome"}, nil),
		chunks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "chunks_received_total"),
			"Decrypted chunks delivered by the secure channel.", kind, nil),
		overflows: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "reassembly_overflows_total"),
			"Inbound reassembly buffer overflows.", kind, nil),
		rate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "bytes_per_second"),
			"Average throughput over the last minute.", []string{"kind", "direction"}, nil),
	}
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.bytes
	ch <- c.sends
	ch <- c.chunks
	ch <- c.overflows
	ch <- c.rate
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for kind, n := range c.reporter.Active() {
		ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(n), kind.String())
	}

	for kind, s := range c.reporter.Totals() {
		k := kind.String()
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue, float64(s.BytesIn), k, "in")
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue, float64(s.BytesOut), k, "out")
		ch <- prometheus.MustNewConstMetric(c.sends, prometheus.CounterValue, float64(s.SendsOK-s.SendsFast), k, "queued_ok")
		ch <- prometheus.MustNewConstMetric(c.sends, prometheus.CounterValue, float64(s.SendsFast), k, "fast_ok")
		ch <- prometheus.MustNewConstMetric(c.sends, prometheus.CounterValue, float64(s.SendsQueued), k, "queued")
		ch <- prometheus.MustNewConstMetric(c.sends, prometheus.CounterValue, float64(s.SendsFailed), k, "failed")
		ch <- prometheus.MustNewConstMetric(c.chunks, prometheus.CounterValue, float64(s.ChunksIn), k)
		ch <- prometheus.MustNewConstMetric(c.overflows, prometheus.CounterValue, float64(s.ReassemblyOverflows), k)
		ch <- prometheus.MustNewConstMetric(c.rate, prometheus.GaugeValue, s.RateIn, k, "in")
		ch <- prometheus.MustNewConstMetric(c.rate, prometheus.GaugeValue, s.RateOut, k, "out")
	}
}
