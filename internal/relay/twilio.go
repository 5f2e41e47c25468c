package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
)

// Conn is the telephony-side message transport: one Media Streams websocket,
// abstracted so the orchestrator can be driven by an in-memory double in
// tests. Read blocks until the next text message arrives or ctx is cancelled.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// WSConn adapts a coder/websocket connection to [Conn]. Twilio Media Streams
// messages are JSON text frames in both directions.
type WSConn struct {
	c *websocket.Conn
}

// Compile-time interface check.
var _ Conn = (*WSConn)(nil)

// NewWSConn wraps an accepted websocket connection.
func NewWSConn(c *websocket.Conn) *WSConn {
	return &WSConn{c: c}
}

// Read implements [Conn].
func (w *WSConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay: read telephony frame: %w", err)
	}
	return data, nil
}

// Write implements [Conn].
func (w *WSConn) Write(ctx context.Context, data []byte) error {
	if err := w.c.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("relay: write telephony frame: %w", err)
	}
	return nil
}

// frameKind discriminates the inbound Media Streams control messages the
// relay acts on.
type frameKind int

const (
	// frameIgnored covers event types the relay does not act on
	// ("connected", "mark", "dtmf"). They are skipped silently.
	frameIgnored frameKind = iota
	frameStart
	frameMedia
	frameStop
)

// inboundFrame is one decoded inbound control message.
type inboundFrame struct {
	Kind frameKind

	// StreamSid is set for frameStart.
	StreamSid string

	// Audio is the decoded companded payload for frameMedia.
	Audio []byte
}

type startPayload struct {
	StreamSid string `json:"streamSid"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

type inboundEnvelope struct {
	Event string        `json:"event"`
	Start *startPayload `json:"start"`
	Media *mediaPayload `json:"media"`
}

// decodeInbound parses one inbound Media Streams message. Malformed JSON, a
// start frame without a stream identifier, and malformed base64 payloads are
// all frame-level errors: the caller logs and skips the frame.
func decodeInbound(raw []byte) (inboundFrame, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return inboundFrame{}, fmt.Errorf("relay: decode frame: %w", err)
	}
	switch env.Event {
	case "start":
		if env.Start == nil || env.Start.StreamSid == "" {
			return inboundFrame{}, fmt.Errorf("relay: start frame without streamSid")
		}
		return inboundFrame{Kind: frameStart, StreamSid: env.Start.StreamSid}, nil
	case "media":
		if env.Media == nil {
			return inboundFrame{}, fmt.Errorf("relay: media frame without payload")
		}
		audio, err := base64.StdEncoding.DecodeString(env.Media.Payload)
		if err != nil {
			return inboundFrame{}, fmt.Errorf("relay: decode media payload: %w", err)
		}
		return inboundFrame{Kind: frameMedia, Audio: audio}, nil
	case "stop":
		return inboundFrame{Kind: frameStop}, nil
	default:
		return inboundFrame{Kind: frameIgnored}, nil
	}
}

type outboundEnvelope struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

// encodeOutboundMedia serialises one companded chunk as an outbound media
// message addressed to streamSid.
func encodeOutboundMedia(streamSid string, mulaw []byte) ([]byte, error) {
	data, err := json.Marshal(outboundEnvelope{
		Event:     "media",
		StreamSid: streamSid,
		Media:     mediaPayload{Payload: base64.StdEncoding.EncodeToString(mulaw)},
	})
	if err != nil {
		return nil, fmt.Errorf("relay: encode media frame: %w", err)
	}
	return data, nil
}
