package manager

import "time"

// Event represents a supervisor lifecycle event or a captured output line.
// Minimal and stable: name + run ID and optional fields via key/values.
type Event struct {
	Name   string
	RunID  string
	Time   time.Time
	Fields map[string]any
}

// Event names published by the Manager.
const (
	EventSpawnStart = "spawn_start"
	EventSpawnError = "spawn_error"
	EventSpawnReady = "spawn_ready"
	EventSpawnExit  = "spawn_exit"
	EventSpawnStop  = "spawn_stop"
	EventLog        = "log"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

func (m *Manager) emit(name, runID string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	m.publisher.Publish(Event{Name: name, RunID: runID, Time: time.Now(), Fields: fields})
}
