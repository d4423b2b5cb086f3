// Package metrics exposes Prometheus counters for the stylization
// pipeline, scraped via /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CardsGenerated counts successfully generated postcards.
var CardsGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "visaginas",
	Name:      "cards_generated_total",
	Help:      "Total stylized images generated.",
})

// TasksFailed counts tasks that ended in the error state.
var TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "visaginas",
	Name:      "tasks_failed_total",
	Help:      "Total tasks that reached the error state.",
})

// TasksActive tracks tasks currently between creation and terminal state.
var TasksActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "visaginas",
	Name:      "tasks_active",
	Help:      "Tasks currently being processed.",
})

// ProcessingDuration tracks wall-clock seconds per task.
var ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "visaginas",
	Name:      "processing_duration_seconds",
	Help:      "Time from processing start to terminal state.",
	Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
})
