package ports

import "context"

// EventPublisher forwards engine events to an analytics or notification pipeline.
type EventPublisher interface {
	// Publish delivers a named event with flat string properties.
	// Failures are reported to the caller but never undo the state change that produced the event.
	Publish(ctx context.Context, name string, properties map[string]string) error
}
