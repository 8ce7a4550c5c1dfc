package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "setsim"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	gameDuration  prom.Histogram
	gameSteps     prom.Histogram
	gameOutcomes  *prom.CounterVec
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	activeWorkers prom.Gauge
	tableKeys     prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.gameDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "game_duration_seconds",
			Help:      "Wall time of one simulated game",
			Buckets:   prom.ExponentialBuckets(0.00001, 4, 10),
		})
		pr.gameSteps = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "game_steps",
			Help:      "Snapshots recorded per completed game",
			Buckets:   prom.LinearBuckets(30, 2, 15),
		})
		pr.gameOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "games_total",
			Help:      "Simulated games by outcome",
		}, []string{"outcome"})
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of run stages (load, checkpoint, save, store, publish)",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Run stage results by success/failure",
		}, []string{"stage", "result"})
		pr.activeWorkers = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Workers currently playing games",
		})
		pr.tableKeys = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "table_keys",
			Help:      "Distinct snapshot keys in the aggregate at the last checkpoint",
		})
		reg.MustRegister(pr.gameDuration, pr.gameSteps, pr.gameOutcomes, pr.stageDuration, pr.stageResults, pr.activeWorkers, pr.tableKeys)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveGameDuration(d time.Duration) {
	if p == nil || p.gameDuration == nil {
		return
	}
	p.gameDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveGameSteps(n int) {
	if p == nil || p.gameSteps == nil {
		return
	}
	p.gameSteps.Observe(float64(n))
}

func (p *PrometheusRecorder) IncGameOutcome(outcome OutcomeLabel) {
	if p == nil || p.gameOutcomes == nil {
		return
	}
	p.gameOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, success bool) {
	if p == nil || p.stageResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.stageResults.WithLabelValues(stage, res).Inc()
}

func (p *PrometheusRecorder) SetActiveWorkers(n int) {
	if p == nil || p.activeWorkers == nil {
		return
	}
	p.activeWorkers.Set(float64(n))
}

func (p *PrometheusRecorder) SetTableKeys(n int) {
	if p == nil || p.tableKeys == nil {
		return
	}
	p.tableKeys.Set(float64(n))
}
