package tasklane

import (
	"testing"
	"time"

	"github.com/mashiike/tasklane/a2a"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.taskSubmitted()
	m.taskTransition(a2a.TaskStateWorking)
	m.taskTransition(a2a.TaskStateWorking)
	m.taskTransition(a2a.TaskStateCompleted)
	m.streamEvent(a2a.NewArtifactEvent("t", a2a.Artifact{}))
	m.streamEvent(a2a.NewStatusEvent("t", a2a.TaskStatus{State: a2a.TaskStateCompleted}, true))
	m.streamOpened()
	m.streamOpened()
	m.streamClosed()
	m.observeHandler(time.Now())

	if got := testutil.ToFloat64(m.tasksSubmitted); got != 1 {
		t.Errorf("tasks_submitted_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("working")); got != 2 {
		t.Errorf("task_transitions_total{state=working} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.streamEvents.WithLabelValues("status")); got != 1 {
		t.Errorf("stream_events_total{kind=status} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.activeStreams); got != 1 {
		t.Errorf("active_streams = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.handlerDuration); got != 1 {
		t.Errorf("handler_duration_seconds series = %d, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("Expected registered metric families")
	}
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Error("Expected registering twice on one registry to fail")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.taskSubmitted()
	m.taskTransition(a2a.TaskStateFailed)
	m.handlerFault()
	m.streamEvent(a2a.TaskEvent{})
	m.streamOpened()
	m.streamClosed()
	m.observeHandler(time.Now())
}
