package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HistogramBuckets are millisecond buckets sized for store round trips and
// short sweep passes.
var HistogramBuckets = []float64{
	1, 2.5, 5, 10, 25, 50, 75, 100, 150, 250, 400,
	600, 1000, 1500, 2500, 5000, 10000, 30000, 60000,
}

// Metric describes one collector. Type selects the prometheus.Collector
// built by NewMetric.
type Metric struct {
	ID          string
	Name        string
	Description string
	Type        string
	Args        []string
}

// NewMetric builds the collector for m under subsystem. Unknown types
// return nil.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case "counter_vec":
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	case "histogram":
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		})
	case "histogram_vec":
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		}, m.Args)
	case "summary_vec":
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	}
	return nil
}
