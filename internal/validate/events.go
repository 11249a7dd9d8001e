package validate

// Lifecycle event types emitted over one run.
const (
	EventValidationStart    = "validation:start"
	EventFilesProcessed     = "files:processed"
	EventMetadataExtracted  = "metadata:extracted"
	EventValidatorStart     = "validator:start"
	EventValidatorComplete  = "validator:complete"
	EventValidationComplete = "validation:complete"
	EventValidationError    = "validation:error"
)

// Event is one lifecycle notification.
type Event struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventSink receives lifecycle events. Implementations must not block the
// caller for long; the runner emits events synchronously.
type EventSink interface {
	Publish(Event)
}

// NopSink discards every event.
type NopSink struct{}

// Publish implements EventSink.
func (NopSink) Publish(Event) {}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(Event)

// Publish implements EventSink.
func (f SinkFunc) Publish(e Event) { f(e) }
