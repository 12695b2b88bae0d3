package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder on a private registry.
type PrometheusRecorder struct {
	reg            *prom.Registry
	cacheLookups   *prom.CounterVec
	staleFallbacks prom.Counter
	polls          *prom.CounterVec
	solutionFetch  *prom.CounterVec
	persistFails   prom.Counter
}

// NewPrometheusRecorder constructs and registers the courier metrics. A nil
// registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "courier",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result",
		}, []string{"result"}),
		staleFallbacks: prom.NewCounter(prom.CounterOpts{
			Namespace: "courier",
			Name:      "cache_stale_fallbacks_total",
			Help:      "Failed fetches answered from stale cache entries",
		}),
		polls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "courier",
			Name:      "job_polls_total",
			Help:      "Job poll ticks by outcome",
		}, []string{"outcome"}),
		solutionFetch: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "courier",
			Name:      "solution_fetches_total",
			Help:      "Solution fetch attempts by outcome",
		}, []string{"outcome"}),
		persistFails: prom.NewCounter(prom.CounterOpts{
			Namespace: "courier",
			Name:      "state_persist_failures_total",
			Help:      "Failed writes of the persisted store blob",
		}),
	}
	reg.MustRegister(pr.cacheLookups, pr.staleFallbacks, pr.polls, pr.solutionFetch, pr.persistFails)
	return pr
}

// Handler exposes the recorder's registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) IncCacheLookup(result string) {
	p.cacheLookups.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncStaleFallback() { p.staleFallbacks.Inc() }

func (p *PrometheusRecorder) IncPoll(outcome string) {
	p.polls.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncSolutionFetch(outcome string) {
	p.solutionFetch.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncPersistFailure() { p.persistFails.Inc() }
