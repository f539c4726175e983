package prometheus

import (
	"time"
)

// MMPMetrics holds the series exported by the MMP service.
type MMPMetrics struct {
	RunsTotal        CounterVec
	RunDuration      HistogramVec
	ActiveRuns       GaugeVec
	InputRowsTotal   CounterVec
	SkippedRowsTotal CounterVec
	PairsEmitted     CounterVec
	ContextsTotal    CounterVec

	ToolkitRequestsTotal   CounterVec
	ToolkitRequestDuration HistogramVec
	ToolkitCacheTotal      CounterVec

	SinkWritesTotal CounterVec

	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
}

// Default buckets.
var (
	DefaultRunDurationBuckets     = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300, 900}
	DefaultToolkitDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	DefaultHTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// NewMMPMetrics registers every MMP series on c.
func NewMMPMetrics(c MetricsCollector) *MMPMetrics {
	return &MMPMetrics{
		RunsTotal:        c.RegisterCounter("runs_total", "Engine runs by final status.", "status"),
		RunDuration:      c.RegisterHistogram("run_duration_seconds", "Engine run wall time.", DefaultRunDurationBuckets, "status"),
		ActiveRuns:       c.RegisterGauge("active_runs", "Engine runs in progress."),
		InputRowsTotal:   c.RegisterCounter("input_rows_total", "Input rows processed."),
		SkippedRowsTotal: c.RegisterCounter("skipped_rows_total", "Input rows skipped after a chemistry failure."),
		PairsEmitted:     c.RegisterCounter("pairs_emitted_total", "Distinct matched pairs emitted."),
		ContextsTotal:    c.RegisterCounter("contexts_total", "Context groups enumerated."),

		ToolkitRequestsTotal:   c.RegisterCounter("toolkit_requests_total", "Toolkit calls by operation and status.", "op", "status"),
		ToolkitRequestDuration: c.RegisterHistogram("toolkit_request_duration_seconds", "Toolkit call latency.", DefaultToolkitDurationBuckets, "op"),
		ToolkitCacheTotal:      c.RegisterCounter("toolkit_cache_total", "Shared toolkit cache lookups by result.", "op", "result"),

		SinkWritesTotal: c.RegisterCounter("sink_writes_total", "Result sink writes by sink and status.", "sink", "status"),

		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "HTTP requests by route and status.", "method", "route", "status"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request latency.", DefaultHTTPDurationBuckets, "method", "route"),
	}
}

// RunStats is the subset of engine statistics recorded per run.
type RunStats struct {
	InputRows   int
	SkippedRows int
	Contexts    int
	Pairs       int
}

// RecordRun records one finished run.
func (m *MMPMetrics) RecordRun(status string, d time.Duration, s RunStats) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(d.Seconds())
	m.InputRowsTotal.WithLabelValues().Add(float64(s.InputRows))
	m.SkippedRowsTotal.WithLabelValues().Add(float64(s.SkippedRows))
	m.ContextsTotal.WithLabelValues().Add(float64(s.Contexts))
	m.PairsEmitted.WithLabelValues().Add(float64(s.Pairs))
}

// RecordToolkitRequest records one toolkit call.
func (m *MMPMetrics) RecordToolkitRequest(op, status string, d time.Duration) {
	m.ToolkitRequestsTotal.WithLabelValues(op, status).Inc()
	m.ToolkitRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordToolkitCache records a shared cache lookup.
func (m *MMPMetrics) RecordToolkitCache(op string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ToolkitCacheTotal.WithLabelValues(op, result).Inc()
}

// RecordSinkWrite records one result sink write.
func (m *MMPMetrics) RecordSinkWrite(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SinkWritesTotal.WithLabelValues(sink, status).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func (m *MMPMetrics) RecordHTTPRequest(method, route, status string, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

//Personal.AI order the ending
