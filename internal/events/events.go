// Package events carries marketplace domain events (registrations, grants,
// draws, debates, payments) to downstream consumers such as notification
// senders. Publishing is best-effort: a failed publish is logged and counted,
// never surfaced to the operation that produced the event.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ProfileRegistered Type = "profile.registered"
	CreditsGranted    Type = "credits.granted"
	CaseSubmitted     Type = "case.submitted"
	CaseDrawn         Type = "case.drawn"
	DebateScored      Type = "debate.scored"
	PaymentCompleted  Type = "payment.completed"
	PaymentFailed     Type = "payment.failed"
	ProfileElevated   Type = "profile.elevated"
	WaiverSigned      Type = "waiver.signed"
)

// Event is one domain fact. Subject is the profile email the event concerns
// and is used as the partition key.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Subject    string         `json:"subject"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// New stamps an event with an id and time.
func New(t Type, subject string, data map[string]any, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Subject:    subject,
		Data:       data,
		OccurredAt: now,
	}
}

// Publisher delivers an event to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Emitter accepts events from services without blocking them on delivery.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Recorder keeps events in memory. Service tests use it as their emitter.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Emit(ctx context.Context, event Event) {
	_ = r.Publish(ctx, event)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filters recorded events by type.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, Event) {}

// LogPublisher writes events to the log. It stands in for Kafka in development.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.DebugContext(ctx, "domain event",
		"event_id", event.ID,
		"event_type", event.Type,
		"subject", event.Subject,
	)
	return nil
}
