package audio

import "fmt"

// InboundTranscoder converts the telephony leg's µ-law 8 kHz chunks into the
// 16 kHz s16le PCM the model session expects. One per call; not safe for
// concurrent use.
type InboundTranscoder struct {
	resampler *Resampler
}

// NewInboundTranscoder creates an inbound transcoder with fresh carry state.
func NewInboundTranscoder() *InboundTranscoder {
	r, _ := NewResampler(TelephonyRate, ModelInputRate)
	return &InboundTranscoder{resampler: r}
}

// Transcode converts one µ-law chunk to 16 kHz PCM. A failed chunk leaves the
// carried resampler state unchanged so the next chunk continues cleanly.
func (t *InboundTranscoder) Transcode(mulaw []byte) ([]byte, error) {
	if len(mulaw) == 0 {
		return nil, nil
	}
	pcm8k := DecodeMulaw(mulaw)
	pcm16k, err := t.resampler.Process(pcm8k)
	if err != nil {
		return nil, fmt.Errorf("audio: inbound transcode: %w", err)
	}
	return pcm16k, nil
}

// OutboundTranscoder converts the model session's 24 kHz s16le PCM chunks
// into the µ-law 8 kHz chunks the telephony leg expects. One per call; not
// safe for concurrent use.
type OutboundTranscoder struct {
	resampler *Resampler
}

// NewOutboundTranscoder creates an outbound transcoder with fresh carry state.
func NewOutboundTranscoder() *OutboundTranscoder {
	r, _ := NewResampler(ModelOutputRate, TelephonyRate)
	return &OutboundTranscoder{resampler: r}
}

// Transcode converts one 24 kHz PCM chunk to µ-law. Truncated PCM (odd byte
// count) fails the single chunk without touching the carried state.
func (t *OutboundTranscoder) Transcode(pcm24k []byte) ([]byte, error) {
	if len(pcm24k) == 0 {
		return nil, nil
	}
	if len(pcm24k)%2 != 0 {
		return nil, fmt.Errorf("audio: outbound transcode: truncated PCM chunk (%d bytes)", len(pcm24k))
	}
	pcm8k, err := t.resampler.Process(pcm24k)
	if err != nil {
		return nil, fmt.Errorf("audio: outbound transcode: %w", err)
	}
	return EncodeMulaw(pcm8k), nil
}
