package telemetry

// EventType classifies a telemetry row.
type EventType string

const (
	EventUserMessage EventType = "user_message"
	EventBotResponse EventType = "bot_response"
	EventError       EventType = "error"
	EventMeta        EventType = "meta"
)

// Event is one append-only telemetry record. SessionID is the sender's
// phone number; Payload and Metadata are stored as JSON.
type Event struct {
	SessionID string
	EventType EventType
	Payload   any
	Metadata  map[string]any
}
