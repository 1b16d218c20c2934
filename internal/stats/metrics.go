package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Exporter espone le metriche Prometheus del servizio
type Exporter struct {
	asksTotal     *prometheus.CounterVec
	attemptsTotal *prometheus.CounterVec
	cacheOpsTotal *prometheus.CounterVec
	askDuration   *prometheus.HistogramVec
	tasksTotal    *prometheus.CounterVec
	tasksInFlight prometheus.Gauge
	taskDuration  *prometheus.HistogramVec
}

// NewExporter crea un exporter registrato su reg. Con reg nil usa
// il registerer di default.
func NewExporter(reg prometheus.Registerer, namespace string) *Exporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "nova"
	}

	factory := promauto.With(reg)

	return &Exporter{
		asksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "asks_total",
				Help:      "Total questions by provider, category and result",
			},
			[]string{"provider", "category", "result"},
		),
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Provider attempts by provider and failure kind (kind=none on success)",
			},
			[]string{"provider", "kind"},
		),
		cacheOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),
		askDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ask_duration_milliseconds",
				Help:      "End-to-end question latency in milliseconds",
				Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
			},
			[]string{"provider"},
		),
		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Orchestrated tasks by capability and outcome status",
			},
			[]string{"capability", "status"},
		),
		tasksInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tasks_in_flight",
				Help:      "Tasks currently being orchestrated",
			},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_milliseconds",
				Help:      "Task orchestration latency in milliseconds",
				Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 60000},
			},
			[]string{"capability"},
		),
	}
}

// RecordAsk registra una domanda completata
func (e *Exporter) RecordAsk(provider, category string, answered, cacheHit bool, latencyMS int64) {
	result := "answered"
	if !answered {
		result = "unanswered"
		provider = "none"
	}

	e.asksTotal.WithLabelValues(provider, category, result).Inc()
	e.askDuration.WithLabelValues(provider).Observe(float64(latencyMS))

	cacheResult := "miss"
	if cacheHit {
		cacheResult = "hit"
	}
	e.cacheOpsTotal.WithLabelValues(cacheResult).Inc()
}

// RecordAttempt registra un tentativo verso un provider
func (e *Exporter) RecordAttempt(provider, failureKind string) {
	if failureKind == "" {
		failureKind = "none"
	}
	e.attemptsTotal.WithLabelValues(provider, failureKind).Inc()
}

// RecordTask registra un task orchestrato completato
func (e *Exporter) RecordTask(capability, status string, latencyMS int64) {
	e.tasksTotal.WithLabelValues(capability, status).Inc()
	e.taskDuration.WithLabelValues(capability).Observe(float64(latencyMS))
}

// TaskStarted incrementa i task in volo
func (e *Exporter) TaskStarted() {
	e.tasksInFlight.Inc()
}

// TaskFinished decrementa i task in volo
func (e *Exporter) TaskFinished() {
	e.tasksInFlight.Dec()
}
