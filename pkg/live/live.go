// Package live defines the client abstraction for duplex generative voice
// sessions.
//
// A live provider wraps a real-time voice model service that accepts streamed
// PCM input and returns synthesised PCM output within one stateful session,
// surfacing mid-conversation tool invocations as events. The central
// abstraction is Session: a bidirectional handle whose Events channel carries
// audio chunks, tool-call batches, and turn markers in arrival order.
//
// All implementations must be safe for concurrent use: the relay's inbound
// leg calls SendAudio while the outbound leg drains Events.
package live

import "context"

// EventKind discriminates the events a session emits.
type EventKind string

const (
	// EventAudio carries one synthesised PCM chunk (24 kHz s16le mono).
	EventAudio EventKind = "audio"

	// EventToolCall carries a batch of tool invocations issued by the model.
	// Every invocation in the batch must be answered via SendToolResults.
	EventToolCall EventKind = "tool_call"

	// EventTurnComplete marks the end of a model response turn.
	EventTurnComplete EventKind = "turn_complete"
)

// Event is one item in a session's receive stream.
type Event struct {
	Kind EventKind

	// Audio is the PCM payload for EventAudio events.
	Audio []byte

	// ToolCalls is the invocation batch for EventToolCall events.
	ToolCalls []ToolCall
}

// ToolCall is a single tool invocation requested by the model. The ID must be
// echoed back on the matching ToolResult so the service can correlate them.
type ToolCall struct {
	ID   string
	Name string

	// Args is the JSON-encoded structured arguments object.
	Args []byte
}

// ToolResult answers one ToolCall. Exactly one result per invocation.
type ToolResult struct {
	ID   string
	Name string

	// Response is the structured result payload sent back to the model.
	Response map[string]any
}

// ToolDefinition declares one tool offered to the model at session setup.
type ToolDefinition struct {
	Name        string
	Description string

	// Parameters is a JSON-schema object describing the tool's arguments.
	Parameters map[string]any
}

// Session is an open duplex session. The relay's two legs drive it
// concurrently; every method must be safe for concurrent use.
//
// Events returns a channel that is closed when the remote side ends the
// session or a transport error occurs; callers check Err afterwards to
// distinguish a clean close from a failure. Callers must call Close when the
// session is no longer needed; Close is idempotent.
type Session interface {
	// SendAudio delivers one PCM input chunk (16 kHz s16le mono) to the model.
	// Backpressure from the transport surfaces as a delay, not data loss.
	SendAudio(chunk []byte) error

	// SendToolResults delivers one batch of tool results, each echoing the
	// originating invocation id.
	SendToolResults(results []ToolResult) error

	// Events returns the session's finite receive stream.
	Events() <-chan Event

	// Err returns the terminal error after Events closes, or nil for a clean
	// remote close.
	Err() error

	// Close tears the session down and releases all resources. Idempotent.
	Close() error
}

// Provider opens sessions against one generative voice backend.
// Implementations must be safe for concurrent use; the relay opens one
// session per bridged call.
type Provider interface {
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
}
