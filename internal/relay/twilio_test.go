package relay

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestDecodeInbound_Start(t *testing.T) {
	t.Parallel()

	frame, err := decodeInbound([]byte(`{"event":"start","start":{"streamSid":"MZ123"}}`))
	if err != nil {
		t.Fatalf("decodeInbound: %v", err)
	}
	if frame.Kind != frameStart || frame.StreamSid != "MZ123" {
		t.Fatalf("frame = %+v, want start/MZ123", frame)
	}
}

func TestDecodeInbound_MediaDecodesPayload(t *testing.T) {
	t.Parallel()

	payload := []byte{0xff, 0x7f, 0x00, 0x80}
	msg := []byte(`{"event":"media","media":{"payload":"` + base64.StdEncoding.EncodeToString(payload) + `"}}`)

	frame, err := decodeInbound(msg)
	if err != nil {
		t.Fatalf("decodeInbound: %v", err)
	}
	if frame.Kind != frameMedia {
		t.Fatalf("kind = %v, want media", frame.Kind)
	}
	if !bytes.Equal(frame.Audio, payload) {
		t.Fatalf("audio = %x, want %x", frame.Audio, payload)
	}
}

func TestDecodeInbound_Stop(t *testing.T) {
	t.Parallel()

	frame, err := decodeInbound([]byte(`{"event":"stop"}`))
	if err != nil {
		t.Fatalf("decodeInbound: %v", err)
	}
	if frame.Kind != frameStop {
		t.Fatalf("kind = %v, want stop", frame.Kind)
	}
}

func TestDecodeInbound_UnknownEventIgnored(t *testing.T) {
	t.Parallel()

	for _, msg := range []string{
		`{"event":"connected","protocol":"Call"}`,
		`{"event":"mark","mark":{"name":"m1"}}`,
	} {
		frame, err := decodeInbound([]byte(msg))
		if err != nil {
			t.Fatalf("decodeInbound(%s): %v", msg, err)
		}
		if frame.Kind != frameIgnored {
			t.Fatalf("kind = %v, want ignored for %s", frame.Kind, msg)
		}
	}
}

func TestDecodeInbound_MalformedFrames(t *testing.T) {
	t.Parallel()

	for _, msg := range []string{
		`not json at all`,
		`{"event":"start"}`,
		`{"event":"start","start":{"streamSid":""}}`,
		`{"event":"media"}`,
		`{"event":"media","media":{"payload":"!!not-base64!!"}}`,
	} {
		if _, err := decodeInbound([]byte(msg)); err == nil {
			t.Errorf("decodeInbound(%s): want error, got nil", msg)
		}
	}
}

func TestEncodeOutboundMedia_Shape(t *testing.T) {
	t.Parallel()

	mulaw := []byte{0x7f, 0xff, 0x00}
	raw, err := encodeOutboundMedia("MZ456", mulaw)
	if err != nil {
		t.Fatalf("encodeOutboundMedia: %v", err)
	}

	var env struct {
		Event     string `json:"event"`
		StreamSid string `json:"streamSid"`
		Media     struct {
			Payload string `json:"payload"`
		} `json:"media"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal outbound frame: %v", err)
	}
	if env.Event != "media" || env.StreamSid != "MZ456" {
		t.Fatalf("envelope = %+v", env)
	}
	decoded, err := base64.StdEncoding.DecodeString(env.Media.Payload)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if !bytes.Equal(decoded, mulaw) {
		t.Fatalf("payload = %x, want %x", decoded, mulaw)
	}
}
