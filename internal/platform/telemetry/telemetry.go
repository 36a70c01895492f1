// Package telemetry records HTTP server and scoring-service metrics and
// exposes them in the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

var (
	durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram stores non-cumulative bucket counts; cumulative counts are
// computed at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	raw := make([]int64, len(h.bucketCounts))
	copy(raw, h.bucketCounts)
	h.mu.Unlock()

	var running int64
	for i, c := range raw {
		running += c
		raw[i] = running
	}
	return raw
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(next)) {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Labeled stores
// ---------------------------------------------------------------------------

// labelsKey joins label values with "|" for use as a map key.
func labelsKey(values ...string) string {
	return strings.Join(values, "|")
}

type histogramVec struct {
	mu    sync.RWMutex
	names []string
	hists map[string]*histogram
}

func newHistogramVec(labelNames ...string) *histogramVec {
	return &histogramVec{names: labelNames, hists: make(map[string]*histogram)}
}

func (v *histogramVec) with(values ...string) *histogram {
	key := labelsKey(values...)
	v.mu.RLock()
	h, ok := v.hists[key]
	v.mu.RUnlock()
	if ok {
		return h
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if h, ok = v.hists[key]; !ok {
		h = newHistogram(durationBuckets)
		v.hists[key] = h
	}
	return h
}

func (v *histogramVec) get(values ...string) *histogram {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.hists[labelsKey(values...)]
}

type counterVec struct {
	mu     sync.Mutex
	names  []string
	values map[string]int64
}

func newCounterVec(labelNames ...string) *counterVec {
	return &counterVec{names: labelNames, values: make(map[string]int64)}
}

func (v *counterVec) inc(values ...string) {
	v.mu.Lock()
	v.values[labelsKey(values...)]++
	v.mu.Unlock()
}

func (v *counterVec) get(values ...string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.values[labelsKey(values...)]
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// Provider holds all metric state for the process.
type Provider struct {
	version string

	httpDuration    *histogramVec // method, route, status_code
	scoringDuration *histogramVec // operation, outcome
	scoringRequests *counterVec   // operation, status_code
	assessments     *counterVec   // risk_level
	alerts          *counterVec   // status
	activeRequests  int64
	activeSessions  int64
}

// NewProvider creates an empty metrics provider.
func NewProvider(version string) *Provider {
	return &Provider{
		version:         version,
		httpDuration:    newHistogramVec("method", "route", "status_code"),
		scoringDuration: newHistogramVec("operation", "outcome"),
		scoringRequests: newCounterVec("operation", "status_code"),
		assessments:     newCounterVec("risk_level"),
		alerts:          newCounterVec("status"),
	}
}

// ObserveScoringCall records one call to the scoring service. Status is 0
// when no response was received.
func (p *Provider) ObserveScoringCall(operation string, status int, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.scoringDuration.with(operation, outcome).Observe(elapsed.Seconds())
	p.scoringRequests.inc(operation, strconv.Itoa(status))
}

// AssessmentCompleted counts a completed assessment by overall risk level.
func (p *Provider) AssessmentCompleted(level string) {
	if level == "" {
		level = "UNKNOWN"
	}
	p.assessments.inc(level)
}

// AlertDelivered counts a risk alert email by delivery status.
func (p *Provider) AlertDelivered(status string) {
	p.alerts.inc(status)
}

// Alerts returns the number of risk alerts that ended with status.
func (p *Provider) Alerts(status string) int64 {
	return p.alerts.get(status)
}

// SetActiveSessions sets the sessions gauge.
func (p *Provider) SetActiveSessions(n int64) {
	atomic.StoreInt64(&p.activeSessions, n)
}

// ScoringRequests returns the number of scoring calls for operation that
// ended with status.
func (p *Provider) ScoringRequests(operation string, status int) int64 {
	return p.scoringRequests.get(operation, strconv.Itoa(status))
}

// Assessments returns the number of completed assessments at level.
func (p *Provider) Assessments(level string) int64 {
	return p.assessments.get(level)
}

// MetricsMiddleware records request durations per route.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&p.activeRequests, 1)
			start := time.Now()

			err := next(c)

			atomic.AddInt64(&p.activeRequests, -1)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			p.httpDuration.with(c.Request().Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// PrometheusHandler serves all metrics at /metrics.
func (p *Provider) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		fmt.Fprintf(&b, "# HELP riskcheck_build_info Build information.\n")
		fmt.Fprintf(&b, "# TYPE riskcheck_build_info gauge\n")
		fmt.Fprintf(&b, "riskcheck_build_info{version=%q} 1\n\n", p.version)

		writeHistogramVec(&b, "http_server_request_duration_seconds",
			"Duration of HTTP requests in seconds.", p.httpDuration)

		writeGauge(&b, "http_server_active_requests", "Number of in-flight HTTP requests.",
			atomic.LoadInt64(&p.activeRequests))

		writeHistogramVec(&b, "scoring_request_duration_seconds",
			"Duration of scoring service calls in seconds.", p.scoringDuration)

		writeCounterVec(&b, "scoring_requests_total",
			"Scoring service calls by operation and response status.", p.scoringRequests)

		writeCounterVec(&b, "assessments_total",
			"Completed assessments by overall risk level.", p.assessments)

		writeCounterVec(&b, "alerts_total",
			"Risk alert emails by delivery status.", p.alerts)

		writeGauge(&b, "sessions_active", "Number of stored sessions.",
			atomic.LoadInt64(&p.activeSessions))

		return c.Blob(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
	}
}

// ---------------------------------------------------------------------------
// Prometheus format helpers
// ---------------------------------------------------------------------------

func formatLabels(names []string, key string) string {
	values := strings.Split(key, "|")
	parts := make([]string, 0, len(names))
	for i, n := range names {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%q", n, v))
	}
	return strings.Join(parts, ",")
}

func writeHistogramVec(b *strings.Builder, name, help string, v *histogramVec) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s histogram\n", name)

	v.mu.RLock()
	keys := make([]string, 0, len(v.hists))
	for k := range v.hists {
		keys = append(keys, k)
	}
	v.mu.RUnlock()
	sort.Strings(keys)

	for _, k := range keys {
		writeSingleHistogram(b, name, formatLabels(v.names, k), v.get(strings.Split(k, "|")...))
	}
	b.WriteByte('\n')
}

func writeSingleHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	total := h.Count()

	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}

func writeCounterVec(b *strings.Builder, name, help string, v *counterVec) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s counter\n", name)

	v.mu.Lock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s{%s} %d\n", name, formatLabels(v.names, k), v.values[k])
	}
	v.mu.Unlock()
	b.WriteByte('\n')
}

func writeGauge(b *strings.Builder, name, help string, val int64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %d\n\n", name, val)
}
