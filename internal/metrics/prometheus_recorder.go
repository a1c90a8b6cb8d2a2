package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "rebuildcheck"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stateCount      *prom.GaugeVec
	pollCycles      prom.Counter
	lookupFailures  prom.Counter
	linkResults     *prom.CounterVec
	runOutcome      *prom.CounterVec
	runDuration     prom.Histogram
	requestDuration *prom.HistogramVec
}

// NewPrometheusRecorder constructs the collectors and registers them with reg.
// A nil registry gets a fresh private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stateCount: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "packages",
			Help:      "Packages per build state after the last poll cycle",
		}, []string{"state"}),
		pollCycles: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Completed build status poll cycles",
		}),
		lookupFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "status_lookup_failures_total",
			Help:      "Build status lookups that failed and will be retried",
		}),
		linkResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_results_total",
			Help:      "Package link results by outcome",
		}, []string{"result"}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Rebuild check outcomes by final status",
		}, []string{"outcome"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total rebuild check duration",
			Buckets:   prom.ExponentialBuckets(60, 2, 12),
		}),
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Build Service API request latency",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "result"}),
	}
	reg.MustRegister(pr.stateCount, pr.pollCycles, pr.lookupFailures, pr.linkResults, pr.runOutcome, pr.runDuration, pr.requestDuration)
	return pr
}

func (p *PrometheusRecorder) SetStateCount(state string, n int) {
	if p == nil {
		return
	}
	p.stateCount.WithLabelValues(state).Set(float64(n))
}

func (p *PrometheusRecorder) IncPollCycle() {
	if p == nil {
		return
	}
	p.pollCycles.Inc()
}

func (p *PrometheusRecorder) IncLookupFailure() {
	if p == nil {
		return
	}
	p.lookupFailures.Inc()
}

func (p *PrometheusRecorder) IncLinkResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.linkResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRequestDuration(method string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := string(ResultFailed)
	if success {
		res = string(ResultSuccess)
	}
	p.requestDuration.WithLabelValues(method, res).Observe(d.Seconds())
}
