package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

// Event is a journey signal published on an EventPublisher.
type Event struct {
	Name string                 `json:"event"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType implements ports.DomainEvent.
func (e Event) EventType() string { return e.Name }

// Payload implements ports.DomainEvent.
func (e Event) Payload() interface{} { return e.Data }

// PublisherSink forwards journey signals to an EventPublisher. Publishing
// failures and panics are logged and swallowed.
type PublisherSink struct {
	publisher ports.EventPublisher
	logger    ports.Logger
}

// NewPublisherSink creates a sink backed by publisher.
func NewPublisherSink(publisher ports.EventPublisher, logger ports.Logger) *PublisherSink {
	return &PublisherSink{publisher: publisher, logger: logger}
}

// Emit implements ports.JourneySink.
func (s *PublisherSink) Emit(ctx context.Context, eventName string, payload map[string]interface{}) {
	if s == nil || s.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.warn(ctx, eventName, fmt.Errorf("publisher panicked: %v", r))
		}
	}()
	if err := s.publisher.Publish(ctx, Event{Name: eventName, Data: payload}); err != nil {
		s.warn(ctx, eventName, err)
	}
}

func (s *PublisherSink) warn(ctx context.Context, eventName string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(ctx, "journey event dropped", "event_type", eventName, "error", err)
}

// JSONLinesWriter appends every event it receives to w as one JSON object per
// line. Subscribe its Handle method to a publisher to keep a journey log.
type JSONLinesWriter struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewJSONLinesWriter creates a writer; now defaults to time.Now.
func NewJSONLinesWriter(w io.Writer, now func() time.Time) *JSONLinesWriter {
	if now == nil {
		now = time.Now
	}
	return &JSONLinesWriter{w: w, now: now}
}

type journeyLine struct {
	Event      string      `json:"event"`
	RecordedAt time.Time   `json:"recorded_at"`
	Data       interface{} `json:"data,omitempty"`
}

// Handle implements ports.EventHandler.
func (j *JSONLinesWriter) Handle(_ context.Context, event ports.DomainEvent) error {
	data := event.Payload()
	if m, ok := data.(map[string]interface{}); ok && len(m) == 0 {
		data = nil
	}
	line, err := json.Marshal(journeyLine{
		Event:      event.EventType(),
		RecordedAt: j.now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("encode journey event: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journey event: %w", err)
	}
	return nil
}

// Recorder is an in-memory JourneySink.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements ports.JourneySink.
func (r *Recorder) Emit(_ context.Context, eventName string, payload map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		copied[k] = v
	}
	r.events = append(r.events, Event{Name: eventName, Data: copied})
}

// Events returns the recorded events in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, event := range r.events {
		names[i] = event.Name
	}
	return names
}

var (
	_ ports.JourneySink = (*PublisherSink)(nil)
	_ ports.JourneySink = (*Recorder)(nil)
	_ ports.DomainEvent = Event{}
)
