package tasklane

import (
	"time"

	"github.com/mashiike/tasklane/a2a"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tasklane"

// Metrics records task lifecycle metrics. A nil *Metrics records nothing.
type Metrics struct {
	tasksSubmitted  prometheus.Counter
	transitions     *prometheus.CounterVec
	handlerFaults   prometheus.Counter
	streamEvents    *prometheus.CounterVec
	activeStreams   prometheus.Gauge
	handlerDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tasks_submitted_total",
			Help:      "Total number of tasks submitted through tasks/send and tasks/sendSubscribe",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "task_transitions_total",
			Help:      "Total number of persisted task status updates by state",
		}, []string{"state"}),
		handlerFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handler_faults_total",
			Help:      "Total number of handler invocations that returned an error",
		}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stream_events_total",
			Help:      "Total number of events delivered to streaming callers by kind",
		}, []string{"kind"}), // kind: status, artifact
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_streams",
			Help:      "Number of currently open event streams",
		}),
		handlerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "handler_duration_seconds",
			Help:      "Histogram of handler execution duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.tasksSubmitted, m.transitions, m.handlerFaults,
		m.streamEvents, m.activeStreams, m.handlerDuration,
	}
}

func (m *Metrics) taskSubmitted() {
	if m == nil {
		return
	}
	m.tasksSubmitted.Inc()
}

func (m *Metrics) taskTransition(state a2a.TaskState) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) handlerFault() {
	if m == nil {
		return
	}
	m.handlerFaults.Inc()
}

func (m *Metrics) streamEvent(event a2a.TaskEvent) {
	if m == nil {
		return
	}
	kind := "status"
	if event.Artifact != nil {
		kind = "artifact"
	}
	m.streamEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) streamOpened() {
	if m == nil {
		return
	}
	m.activeStreams.Inc()
}

func (m *Metrics) streamClosed() {
	if m == nil {
		return
	}
	m.activeStreams.Dec()
}

func (m *Metrics) observeHandler(start time.Time) {
	if m == nil {
		return
	}
	m.handlerDuration.Observe(time.Since(start).Seconds())
}
