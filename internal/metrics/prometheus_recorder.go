package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "isle"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	styleDuration  prom.Histogram
	styleFiles     prom.Gauge
	styleResults   *prom.CounterVec
	islandDuration *prom.HistogramVec
	islandResults  *prom.CounterVec
	pageRenders    *prom.CounterVec
	buildDuration  *prom.HistogramVec
	reloads        prom.Counter
	reloadTargets  prom.Counter
	restarts       *prom.CounterVec
	reloadClients  prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg. A nil
// registry gets a private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		styleDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "style_compile_duration_seconds",
			Help:      "Duration of a full style module compile pass",
			Buckets:   prom.DefBuckets,
		}),
		styleFiles: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "style_modules",
			Help:      "Number of style modules in the last compile pass",
		}),
		styleResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "style_module_results_total",
			Help:      "Per-file style module results",
		}, []string{"result"}),
		islandDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "island_bundle_duration_seconds",
			Help:      "Duration of individual island bundles",
			Buckets:   prom.DefBuckets,
		}, []string{"target"}),
		islandResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "island_bundle_results_total",
			Help:      "Island bundle results by island, target and outcome",
		}, []string{"island", "target", "result"}),
		pageRenders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Rendered pages and documents by outcome",
		}, []string{"kind", "result"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total static build duration",
			Buckets:   prom.DefBuckets,
		}, []string{"outcome"}),
		reloads: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reload_broadcasts_total",
			Help:      "Reload broadcasts issued",
		}),
		reloadTargets: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reload_deliveries_total",
			Help:      "Reload events delivered to connected clients",
		}),
		restarts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "supervisor_restarts_total",
			Help:      "Server restarts performed by the supervisor",
		}, []string{"result"}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "reload_clients",
			Help:      "Currently connected live-reload clients",
		}),
	}
	reg.MustRegister(
		pr.styleDuration, pr.styleFiles, pr.styleResults,
		pr.islandDuration, pr.islandResults, pr.pageRenders,
		pr.buildDuration, pr.reloads, pr.reloadTargets,
		pr.restarts, pr.reloadClients,
	)
	return pr
}

func (p *PrometheusRecorder) ObserveStyleCompile(d time.Duration, files int) {
	if p == nil {
		return
	}
	p.styleDuration.Observe(d.Seconds())
	p.styleFiles.Set(float64(files))
}

func (p *PrometheusRecorder) IncStyleResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.styleResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveIslandBundle(island, target string, d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.islandDuration.WithLabelValues(target).Observe(d.Seconds())
	p.islandResults.WithLabelValues(island, target, string(result)).Inc()
}

func (p *PrometheusRecorder) IncPageRender(kind string, result ResultLabel) {
	if p == nil {
		return
	}
	p.pageRenders.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration, outcome ResultLabel) {
	if p == nil {
		return
	}
	p.buildDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncReloadBroadcast(delivered int) {
	if p == nil {
		return
	}
	p.reloads.Inc()
	p.reloadTargets.Add(float64(delivered))
}

func (p *PrometheusRecorder) IncRestart(result ResultLabel) {
	if p == nil {
		return
	}
	p.restarts.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetReloadClients(n int) {
	if p == nil {
		return
	}
	p.reloadClients.Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
