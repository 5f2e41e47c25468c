// Package mock provides test doubles for the live package interfaces.
//
// Use Provider to verify Connect calls and feed controlled sessions. Use
// Session to drive the event stream and inspect what the relay sent.
//
// Example:
//
//	sess := mock.NewSession()
//	p := &mock.Provider{Session: sess}
//	sess.EmitAudio([]byte{...})
//	sess.Finish(nil)
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/yexis-labs/riobridge/pkg/live"
)

// Compile-time interface checks.
var _ live.Provider = (*Provider)(nil)
var _ live.Session = (*Session)(nil)

// ConnectCall records a single invocation of Provider.Connect.
type ConnectCall struct {
	Ctx context.Context
	Cfg live.SessionConfig
}

// Provider is a mock implementation of live.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is returned by Connect. If nil, Connect returns a fresh Session.
	Session live.Session

	// ConnectErr, if non-nil, is returned as the error from Connect.
	ConnectErr error

	// ConnectCalls records every call to Connect in order.
	ConnectCalls []ConnectCall
}

// Connect records the call and returns Session, ConnectErr.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{Ctx: ctx, Cfg: cfg})
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return NewSession(), nil
}

// Calls returns a copy of the recorded Connect calls.
func (p *Provider) Calls() []ConnectCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ConnectCall(nil), p.ConnectCalls...)
}

// Session is a mock implementation of live.Session. Tests feed events with
// EmitAudio / EmitToolCalls / EmitTurnComplete and end the stream with Finish.
type Session struct {
	mu sync.Mutex

	events chan live.Event
	errVal error
	closed bool
	once   sync.Once

	// SendAudioErr, if non-nil, is returned by SendAudio.
	SendAudioErr error

	// SentAudio records every chunk passed to SendAudio.
	SentAudio [][]byte

	// SentResults records every batch passed to SendToolResults.
	SentResults [][]live.ToolResult
}

// NewSession creates a mock session with a buffered event stream.
func NewSession() *Session {
	return &Session{events: make(chan live.Event, 64)}
}

// EmitAudio queues one audio event.
func (s *Session) EmitAudio(chunk []byte) {
	s.events <- live.Event{Kind: live.EventAudio, Audio: chunk}
}

// EmitToolCalls queues one tool-call batch event.
func (s *Session) EmitToolCalls(calls ...live.ToolCall) {
	s.events <- live.Event{Kind: live.EventToolCall, ToolCalls: calls}
}

// EmitTurnComplete queues a turn-complete event.
func (s *Session) EmitTurnComplete() {
	s.events <- live.Event{Kind: live.EventTurnComplete}
}

// Finish closes the event stream, recording err as the terminal error
// (nil means a clean remote close). Safe to call more than once.
func (s *Session) Finish(err error) {
	s.mu.Lock()
	if s.errVal == nil {
		s.errVal = err
	}
	s.mu.Unlock()
	s.once.Do(func() { close(s.events) })
}

// SendAudio records chunk and returns SendAudioErr.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("mock: session closed")
	}
	cp := append([]byte(nil), chunk...)
	s.SentAudio = append(s.SentAudio, cp)
	return s.SendAudioErr
}

// SendToolResults records the batch.
func (s *Session) SendToolResults(results []live.ToolResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("mock: session closed")
	}
	s.SentResults = append(s.SentResults, append([]live.ToolResult(nil), results...))
	return nil
}

// Events returns the mock event stream.
func (s *Session) Events() <-chan live.Event { return s.events }

// Err returns the terminal error recorded by Finish.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errVal
}

// Close marks the session closed and ends the event stream. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.once.Do(func() { close(s.events) })
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// AudioSent returns a copy of all chunks passed to SendAudio.
func (s *Session) AudioSent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.SentAudio...)
}

// ResultsSent returns a copy of all batches passed to SendToolResults.
func (s *Session) ResultsSent() [][]live.ToolResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]live.ToolResult(nil), s.SentResults...)
}
