// Package metrics provides Prometheus metrics for artifact resolution and registry sync.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Resolver
	resolutions       *prometheus.CounterVec
	candidateProbes   *prometheus.CounterVec
	remoteFallbacks   prometheus.Counter
	cacheWrites       prometheus.Counter
	resolutionLatency prometheus.Histogram

	// Publisher
	publishWrites   *prometheus.CounterVec
	publishOverride prometheus.Counter
	publishLatency  prometheus.Histogram

	// Checker / reconcile
	verifications *prometheus.CounterVec
	driftFindings *prometheus.CounterVec
	mirrorsPurged prometheus.Counter
	reconcileRuns *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// global pairs the active manager with the custom registry it registered on.
// A custom registry avoids default Go metrics.
type global struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[global] //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	Init()
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before serving /metrics.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(registry))
	current.Store(&global{manager: NewManager(opts...), registry: registry})
}

func active() *Manager { return current.Load().manager }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "leaguemodel",
		subsystem:        "registry",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.resolutions = auto.NewCounterVec(
		m.counterOpts("resolutions_total", "Artifact resolutions by winning tier and outcome"),
		[]string{"tier", "outcome"},
	)
	m.candidateProbes = auto.NewCounterVec(
		m.counterOpts("candidate_probes_total", "Existence checks issued per tier"),
		[]string{"tier", "hit"},
	)
	m.remoteFallbacks = auto.NewCounter(
		m.counterOpts("remote_fallbacks_total", "Resolutions that fell back to local tiers after a remote error"),
	)
	m.cacheWrites = auto.NewCounter(
		m.counterOpts("cache_writes_total", "Remote artifacts materialized into the local cache"),
	)
	m.resolutionLatency = auto.NewHistogram(
		m.histogramOpts("resolution_latency_milliseconds", "Resolution latency in milliseconds"),
	)

	m.publishWrites = auto.NewCounterVec(
		m.counterOpts("publish_writes_total", "Document writes issued by publish, by collection and outcome"),
		[]string{"collection", "outcome"},
	)
	m.publishOverride = auto.NewCounter(
		m.counterOpts("publish_model_type_overrides_total", "Mirror records whose model type was forced to the authoritative tag"),
	)
	m.publishLatency = auto.NewHistogram(
		m.histogramOpts("publish_latency_milliseconds", "Publish latency in milliseconds"),
	)

	m.verifications = auto.NewCounterVec(
		m.counterOpts("verifications_total", "Per-league verifications by result"),
		[]string{"result"},
	)
	m.driftFindings = auto.NewCounterVec(
		m.counterOpts("drift_findings_total", "Drift findings by reason"),
		[]string{"reason"},
	)
	m.mirrorsPurged = auto.NewCounter(
		m.counterOpts("mirrors_purged_total", "Mirror records deleted by reconcile"),
	)
	m.reconcileRuns = auto.NewCounterVec(
		m.counterOpts("reconcile_runs_total", "Reconcile runs by outcome"),
		[]string{"outcome"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordResolution counts a finished resolution.
func RecordResolution(tier, outcome string, latencyMs float64) {
	active().resolutions.WithLabelValues(tier, outcome).Inc()
	active().resolutionLatency.Observe(latencyMs)
}

// RecordCandidateProbe counts one existence check.
func RecordCandidateProbe(tier string, hit bool) {
	h := "false"
	if hit {
		h = "true"
	}
	active().candidateProbes.WithLabelValues(tier, h).Inc()
}

// RecordRemoteFallback counts a fallback from the remote tier to local tiers.
func RecordRemoteFallback() {
	active().remoteFallbacks.Inc()
}

// RecordCacheWrite counts a remote artifact written to the cache.
func RecordCacheWrite() {
	active().cacheWrites.Inc()
}

// RecordPublishWrite counts a document write issued by publish.
func RecordPublishWrite(collection string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	active().publishWrites.WithLabelValues(collection, outcome).Inc()
}

// RecordModelTypeOverride counts a forced model type.
func RecordModelTypeOverride() {
	active().publishOverride.Inc()
}

// RecordPublishLatency records a publish run duration in milliseconds.
func RecordPublishLatency(latencyMs float64) {
	active().publishLatency.Observe(latencyMs)
}

// RecordVerification counts a single-league verification.
func RecordVerification(matches bool) {
	result := "match"
	if !matches {
		result = "drift"
	}
	active().verifications.WithLabelValues(result).Inc()
}

// RecordDriftFinding counts a drift finding by reason.
func RecordDriftFinding(reason string) {
	active().driftFindings.WithLabelValues(reason).Inc()
}

// RecordMirrorsPurged adds n purged mirror records.
func RecordMirrorsPurged(n int) {
	active().mirrorsPurged.Add(float64(n))
}

// RecordReconcileRun counts a reconcile run.
func RecordReconcileRun(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	active().reconcileRuns.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	active().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	active().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}

// Totals gathers the custom registry and sums every counter family by name.
// Discrete CLI runs log this on exit since nothing scrapes them.
func Totals() (map[string]float64, error) {
	families, err := GetRegistry().Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	totals := make(map[string]float64, len(families))
	for _, fam := range families {
		if fam.GetType() != dto.MetricType_COUNTER {
			continue
		}
		var sum float64
		for _, metric := range fam.GetMetric() {
			sum += metric.GetCounter().GetValue()
		}
		totals[fam.GetName()] = sum
	}
	return totals, nil
}
