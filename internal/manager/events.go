package manager

import (
	"time"

	"hdi1d/pkg/types"
)

// Event represents a lifecycle or progress event.
// Minimal and stable: name + variant id and optional fields via key/values.
type Event struct {
	Name    string
	Variant string
	Time    time.Time
	Fields  map[string]any
}

// API converts the event into its wire representation.
func (e Event) API() types.Event {
	return types.Event{Name: e.Name, Variant: e.Variant, TimeUnix: e.Time.Unix(), Fields: e.Fields}
}

// EventPublisher receives events from the manager and the generation handler.
// Implementations should be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// multiPublisher fans one event out to several publishers in order.
type multiPublisher []EventPublisher

func (mp multiPublisher) Publish(e Event) {
	for _, p := range mp {
		p.Publish(e)
	}
}

// MultiPublisher combines publishers; nil entries are skipped.
func MultiPublisher(ps ...EventPublisher) EventPublisher {
	out := make(multiPublisher, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m *Manager) emit(name, variant string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	m.publisher.Publish(Event{Name: name, Variant: variant, Time: time.Now(), Fields: fields})
}
