package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/bugs/:id/:transition", "PATCH", 200, 10*time.Millisecond)
	m.RecordRequest("/api/bugs/:id/:transition", "PATCH", 200, 30*time.Millisecond)
	m.RecordError("/api/bugs/1/close", "PATCH", "FORBIDDEN")
	m.RecordTransition("bug", "close", "denied")
	m.RecordTransition("bug", "close", "denied")

	snap := m.Snapshot()
	key := "/api/bugs/:id/:transition|PATCH|200"
	if snap.Requests[key] != 2 {
		t.Fatalf("Requests[%q] = %d, want 2", key, snap.Requests[key])
	}
	if snap.RequestLatencyAvg[key] != "20ms" {
		t.Fatalf("RequestLatencyAvg[%q] = %q, want 20ms", key, snap.RequestLatencyAvg[key])
	}
	if snap.Errors["/api/bugs/1/close|PATCH|FORBIDDEN"] != 1 {
		t.Fatalf("Errors = %v", snap.Errors)
	}
	if snap.Transitions["bug|close|denied"] != 2 {
		t.Fatalf("Transitions = %v", snap.Transitions)
	}

	snap.Transitions["bug|close|denied"] = 99
	if m.Snapshot().Transitions["bug|close|denied"] != 2 {
		t.Fatal("Snapshot() must return a copy")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordTransition("bug", "close", "ok")
	if snap := m.Snapshot(); snap.Requests != nil {
		t.Fatalf("Snapshot() on nil = %+v", snap)
	}
}
