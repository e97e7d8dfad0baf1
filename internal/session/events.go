package session

import "context"

// EventType names a call session event. Values mirror the vendor SDK event
// names so wire messages map 1:1 onto subscriptions.
type EventType string

const (
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventVolumeLevel EventType = "volume-level"
	EventMessage     EventType = "message"
	EventError       EventType = "error"
)

// Message kinds and transcript markers.
const (
	MessageTypeTranscript         = "transcript"
	MessageTypeFunctionCallResult = "function-call-result"

	RoleUser      = "user"
	RoleAssistant = "assistant"

	TranscriptPartial = "partial"
	TranscriptFinal   = "final"
)

// Message is one unit of conversation content delivered on the event stream.
type Message struct {
	ID             string         `json:"id,omitempty"`
	Type           string         `json:"type"`
	Role           string         `json:"role,omitempty"`
	TranscriptType string         `json:"transcriptType,omitempty"`
	Transcript     string         `json:"transcript,omitempty"`
	Result         map[string]any `json:"result,omitempty"`
}

// Event carries the payload for a single emitted event. Only the fields
// relevant to the event type are populated; Call keeps the vendor's shape
// opaque because builds have disagreed on where the call id lives.
type Event struct {
	Type    EventType
	Volume  float64
	Message *Message
	Call    any
	Err     error
}

// Handler receives events for one subscription.
type Handler func(Event)

// HandlerID identifies a registered handler so it can be removed again.
// Function values are not comparable in Go, so subscription is by id.
type HandlerID int

// EventSource is the minimal capability surface of the vendor call SDK:
// subscribe, unsubscribe, start a session, request its termination.
type EventSource interface {
	On(event EventType, h Handler) HandlerID
	Off(event EventType, id HandlerID)
	Start(ctx context.Context, assistantID string) error
	Stop() error
}
