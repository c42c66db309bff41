package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

const businessSubsystem = "entitlement"

var quotaDecision = &Metric{
	ID:          "quotaDecision",
	Name:        "quota_decision_total",
	Description: "Quota and push decisions, partitioned by operation and reason.",
	Type:        "counter_vec",
	Args:        []string{"op", "reason"},
}

var transitionCnt = &Metric{
	ID:          "transitionCnt",
	Name:        "transition_total",
	Description: "Committed subscription transitions, partitioned by the status the retired subscription ended in.",
	Type:        "counter_vec",
	Args:        []string{"status"},
}

var businessProcess = &Metric{
	ID:          "bpDur",
	Name:        "bp_dur",
	Description: "Business step latency in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"type", "subtype"},
}

var sweepDur = &Metric{
	ID:          "sweepDur",
	Name:        "sweep_dur_ms",
	Description: "Expiry sweep pass latency in milliseconds.",
	Type:        "histogram",
}

// Recorder exposes the business collectors. A nil *Recorder records nothing.
type Recorder struct {
	decisions   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	sweep       prometheus.Histogram
	process     *prometheus.HistogramVec
}

// NewRecorder registers the business collectors with reg, reusing
// collectors that are already registered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Recorder{
		decisions:   register(reg, quotaDecision).(*prometheus.CounterVec),
		transitions: register(reg, transitionCnt).(*prometheus.CounterVec),
		sweep:       register(reg, sweepDur).(prometheus.Histogram),
		process:     register(reg, businessProcess).(*prometheus.HistogramVec),
	}
}

func register(reg prometheus.Registerer, m *Metric) prometheus.Collector {
	return registerIn(reg, m, businessSubsystem)
}

func registerIn(reg prometheus.Registerer, m *Metric, subsystem string) prometheus.Collector {
	c := NewMetric(m, subsystem)
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// Decision counts one allow/deny outcome. An empty reason means allowed.
func (r *Recorder) Decision(op, reason string) {
	if r == nil {
		return
	}
	if reason == "" {
		reason = "allowed"
	}
	r.decisions.WithLabelValues(op, reason).Inc()
}

func (r *Recorder) Transition(status string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(status).Inc()
}

func (r *Recorder) ObserveSweep(start time.Time) {
	if r == nil {
		return
	}
	r.sweep.Observe(MillisecondsSince(start))
}

// ObserveProcess records the latency of a business step under type/subtype.
func (r *Recorder) ObserveProcess(typ, subtype string, start time.Time) {
	if r == nil {
		return
	}
	r.process.WithLabelValues(typ, subtype).Observe(MillisecondsSince(start))
}

func newDefaultRecorder() *Recorder { return NewRecorder(prometheus.DefaultRegisterer) }

var Module = fx.Options(
	fx.Provide(newDefaultRecorder),
)
