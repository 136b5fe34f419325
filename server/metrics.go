package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/pin"
	"github.com/tailored-agentic-units/probe/registry"
)

const metricsNamespace = "probe"

// metrics owns a dedicated Prometheus registry so several servers can live
// in one process.
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

func newMetrics(reg *registry.Registry, logs *logsink.Sink) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.requests,
		newPinCollector(reg),
		newLogCollector(logs),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) instrument(route string, h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(
		m.requests.MustCurryWith(prometheus.Labels{"route": route}), h)
}

// pinCollector exports every numeric and boolean pin as a gauge, read at
// scrape time. Booleans export as 0 or 1.
type pinCollector struct {
	registry *registry.Registry
	value    *prometheus.Desc
	count    *prometheus.Desc
}

func newPinCollector(reg *registry.Registry) *pinCollector {
	return &pinCollector{
		registry: reg,
		value: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "pin", "value"),
			"Current value of a numeric or boolean pin.",
			[]string{"name", "namespace"}, nil),
		count: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "pins"),
			"Number of registered pins.",
			nil, nil),
	}
}

// Describe is part of the implementation of prometheus.Collector.
func (c *pinCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.value
	ch <- c.count
}

// Collect is part of the implementation of prometheus.Collector.
func (c *pinCollector) Collect(ch chan<- prometheus.Metric) {
	pins := c.registry.Pins()
	ch <- prometheus.MustNewConstMetric(c.count, prometheus.GaugeValue, float64(len(pins)))

	for _, p := range pins {
		v, ok := gaugeValue(p)
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, v, p.Name(), p.Namespace())
	}
}

func gaugeValue(p *pin.Pin) (float64, bool) {
	if !p.Readable() {
		return 0, false
	}
	v, err := p.Read()
	if err != nil {
		return 0, false
	}

	switch p.Kind() {
	case pin.KindNumeric:
		return pin.Float64(v)
	case pin.KindBoolean:
		if b, _ := v.(bool); b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

type logCollector struct {
	logs     *logsink.Sink
	retained *prometheus.Desc
	evicted  *prometheus.Desc
}

func newLogCollector(logs *logsink.Sink) *logCollector {
	return &logCollector{
		logs: logs,
		retained: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "log", "entries"),
			"Log entries currently retained.",
			nil, nil),
		evicted: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "log", "evicted_total"),
			"Log entries dropped to honor the capacity.",
			nil, nil),
	}
}

// Describe is part of the implementation of prometheus.Collector.
func (c *logCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.retained
	ch <- c.evicted
}

// Collect is part of the implementation of prometheus.Collector.
func (c *logCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.retained, prometheus.GaugeValue, float64(c.logs.Len()))
	ch <- prometheus.MustNewConstMetric(c.evicted, prometheus.CounterValue, float64(c.logs.Evicted()))
}
