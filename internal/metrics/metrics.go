// v0
// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solarmon/internal/telemetry"
)

// Metrics bundles the Prometheus collectors exported by the daemon. All
// methods tolerate a nil receiver so wiring stays optional in tests.
type Metrics struct {
	samplesTotal       prometheus.Counter
	parseErrorsTotal   prometheus.Counter
	linkErrorsTotal    *prometheus.CounterVec
	sinkErrorsTotal    *prometheus.CounterVec
	calReloadsTotal    *prometheus.CounterVec
	powerWatts         prometheus.Gauge
	energyWhDay        prometheus.Gauge
	lastSampleUnix     prometheus.Gauge
	httpRequestsTotal  *prometheus.CounterVec
	httpDurationSecond *prometheus.HistogramVec
}

// NewMetrics registers all collectors on the default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		samplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solarmon_samples_total",
			Help: "Total count of successfully ingested samples.",
		}),
		parseErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solarmon_parse_errors_total",
			Help: "Total count of telemetry lines dropped as unparseable.",
		}),
		linkErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solarmon_link_errors_total",
			Help: "Total count of serial link failures by stage.",
		}, []string{"stage"}),
		sinkErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solarmon_sink_errors_total",
			Help: "Total count of sample sink write failures by sink.",
		}, []string{"sink"}),
		calReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solarmon_calibration_reloads_total",
			Help: "Total count of runtime calibration reloads by result.",
		}, []string{"result"}),
		powerWatts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solarmon_power_watts",
			Help: "Calibrated power of the most recent sample.",
		}),
		energyWhDay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solarmon_energy_wh_day",
			Help: "Accumulated energy for the current local date.",
		}),
		lastSampleUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solarmon_last_sample_unix_seconds",
			Help: "Host timestamp of the most recent sample.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solarmon_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDurationSecond: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solarmon_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	prometheus.MustRegister(
		m.samplesTotal,
		m.parseErrorsTotal,
		m.linkErrorsTotal,
		m.sinkErrorsTotal,
		m.calReloadsTotal,
		m.powerWatts,
		m.energyWhDay,
		m.lastSampleUnix,
		m.httpRequestsTotal,
		m.httpDurationSecond,
	)

	return m
}

// ObserveSample records the gauges derived from one ingested sample.
func (m *Metrics) ObserveSample(sample telemetry.CalibratedSample) {
	if m == nil {
		return
	}
	m.samplesTotal.Inc()
	m.powerWatts.Set(sample.PowerW)
	m.energyWhDay.Set(sample.EnergyWhDay)
	m.lastSampleUnix.Set(float64(sample.Timestamp.Unix()))
}

func (m *Metrics) IncParseError() {
	if m == nil {
		return
	}
	m.parseErrorsTotal.Inc()
}

// IncLinkError counts a link failure; stage is "dial" or "read".
func (m *Metrics) IncLinkError(stage string) {
	if m == nil {
		return
	}
	m.linkErrorsTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncSinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrorsTotal.WithLabelValues(sink).Inc()
}

// IncCalibrationReload counts a reload attempt; result is "ok" or
// "rejected".
func (m *Metrics) IncCalibrationReload(result string) {
	if m == nil {
		return
	}
	m.calReloadsTotal.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler instruments a route with request count and latency metrics.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDurationSecond.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler exposes the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
