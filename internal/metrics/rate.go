package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-watchdog/internal/timeseries"
)

// RateSource supplies rolling restart rates.
type RateSource interface {
	GetStats() timeseries.RateStats
}

// restartRateCollector exports the rolling restart rates at scrape time.
type restartRateCollector struct {
	source RateSource
	desc   *prometheus.Desc
}

// NewRestartRateCollector returns a collector exporting
// watchdog_child_restart_rate_per_minute{window="1m"|"5m"|"15m"} from source.
func NewRestartRateCollector(source RateSource) prometheus.Collector {
	return &restartRateCollector{
		source: source,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "child", "restart_rate_per_minute"),
			"Child restarts per minute over a rolling window",
			[]string{"window"}, nil,
		),
	}
}

func (c *restartRateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *restartRateCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.GetStats()
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, s.PerMinute1m, "1m")
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, s.PerMinute5m, "5m")
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, s.PerMinute15m, "15m")
}
