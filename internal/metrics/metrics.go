// Package metrics emits the check's gauges: a small Emitter interface plus
// a Prometheus GaugeVec-backed implementation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Emitter receives one gauge sample per metric name and tag set.
type Emitter interface {
	Gauge(name string, value float64, tags map[string]string)
}

// Metric name suffixes emitted by the reconciliation pipeline.
const (
	RunningCount        = "running.count"
	RunningFootprint    = "running.footprint"
	ReservedCount       = "reserved.count"
	ReservedFootprint   = "reserved.footprint"
	OndemandCount       = "ondemand.count"
	OndemandFootprint   = "ondemand.footprint"
	ReservedUnusedCount = "reserved_unused.count"
	ReservedUnusedFoot  = "reserved_unused.footprint"
)

var allSuffixes = []string{
	RunningCount, RunningFootprint,
	ReservedCount, ReservedFootprint,
	OndemandCount, OndemandFootprint,
	ReservedUnusedCount, ReservedUnusedFoot,
}

// Tag keys attached to every gauge.
const (
	TagZone   = "ac-az"
	TagType   = "ac-type"
	TagFamily = "ac-family"
)

// labelNames are the Prometheus-safe label names corresponding to the wire
// tag keys above (Prometheus label names cannot contain '-').
var labelNames = []string{"ac_az", "ac_type", "ac_family"}

func prometheusName(prefix, suffix string) string {
	// Prometheus metric names use '_' as the only separator.
	safe := prefix + "_"
	for _, r := range suffix {
		if r == '.' {
			safe += "_"
		} else {
			safe += string(r)
		}
	}
	return safe
}

// PrometheusEmitter registers one GaugeVec per metric suffix under the
// configured namespace/prefix, and implements Emitter against them.
type PrometheusEmitter struct {
	registry *prometheus.Registry
	prefix   string
	gauges   map[string]*prometheus.GaugeVec
}

// NewPrometheusEmitter builds a PrometheusEmitter, registering all eight
// gauges (running/reserved/ondemand/reserved_unused x count/footprint)
// against a fresh registry under metricPrefix.
func NewPrometheusEmitter(metricPrefix string) *PrometheusEmitter {
	reg := prometheus.NewRegistry()
	e := &PrometheusEmitter{
		registry: reg,
		prefix:   metricPrefix,
		gauges:   make(map[string]*prometheus.GaugeVec, len(allSuffixes)),
	}
	for _, suffix := range allSuffixes {
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheusName(metricPrefix, suffix),
			Help: "EC2 reservation reconciliation gauge: " + suffix,
		}, labelNames)
		reg.MustRegister(gv)
		e.gauges[suffix] = gv
	}
	return e
}

// Gauge implements Emitter by setting the GaugeVec entry for name with the
// given tags, translating the wire tag keys (ac-az, ac-type, ac-family) to
// Prometheus label names.
func (e *PrometheusEmitter) Gauge(name string, value float64, tags map[string]string) {
	gv, ok := e.gauges[name]
	if !ok {
		return
	}
	gv.With(prometheus.Labels{
		"ac_az":     tags[TagZone],
		"ac_type":   tags[TagType],
		"ac_family": tags[TagFamily],
	}).Set(value)
}

// Handler returns an http.Handler suitable for scrape-based collection.
func (e *PrometheusEmitter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Push pushes the current gauge values to a Prometheus Pushgateway at url
// under the given job name, for hosts with no scrape target.
func (e *PrometheusEmitter) Push(url, job string) error {
	pusher := push.New(url, job)
	for _, gv := range e.gauges {
		pusher = pusher.Collector(gv)
	}
	return pusher.Push()
}
