package ports

import "context"

const (
	// EventStepEntered is emitted when navigation changes the current step.
	EventStepEntered = "wizard.step_entered"
	// EventWizardCompleted is emitted once the last applicable step passes.
	EventWizardCompleted = "wizard.completed"
	// EventSessionSaved is emitted after a session snapshot is persisted.
	EventSessionSaved = "session.saved"
)

// DomainEvent represents a significant occurrence within the domain or
// application layer. Events carry structured payloads that downstream
// subscribers can use for logging, UI updates, or integrations.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// EventPublisher distributes events to interested subscribers. Dispatch is
// synchronous: Publish blocks until all handlers run. Implementations must be
// thread-safe.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes an event of a specific type. Handlers should avoid
// panicking; failures should be surfaced via returned errors so publishers can
// log diagnostics and continue delivering to remaining subscribers.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler. Callers must invoke
// Unsubscribe to stop receiving events and release resources.
type Subscription interface {
	Unsubscribe()
}

// JourneySink receives analytics signals for step transitions. Emit is best
// effort: it never returns an error and implementations log their own
// failures.
type JourneySink interface {
	Emit(ctx context.Context, eventName string, payload map[string]interface{})
}

// JourneySinkFunc adapts a function to JourneySink.
type JourneySinkFunc func(ctx context.Context, eventName string, payload map[string]interface{})

// Emit calls f.
func (f JourneySinkFunc) Emit(ctx context.Context, eventName string, payload map[string]interface{}) {
	f(ctx, eventName, payload)
}
