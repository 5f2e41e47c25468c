// Package audio implements the telephony-side transcoding pipeline: G.711
// µ-law companding and a streaming linear resampler that carries fractional
// phase across chunk boundaries.
//
// The two directions of a bridged call use fixed formats:
//
//   - inbound:  µ-law 8 kHz mono (Twilio) → s16le PCM 16 kHz mono (model input)
//   - outbound: s16le PCM 24 kHz mono (model output) → µ-law 8 kHz mono (Twilio)
//
// All PCM is little-endian signed 16-bit mono. A Resampler is owned by exactly
// one direction of one call and must not be shared.
package audio

// Telephony and model sample rates. These are protocol constants: Twilio Media
// Streams always carry 8 kHz µ-law, Gemini Live accepts 16 kHz PCM input and
// emits 24 kHz PCM output.
const (
	TelephonyRate   = 8000
	ModelInputRate  = 16000
	ModelOutputRate = 24000
)

// bytesToSamples reinterprets little-endian s16le PCM bytes as int16 samples.
// A trailing odd byte is the caller's error to detect; this helper truncates.
func bytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return samples
}

// samplesToBytes serialises int16 samples as little-endian s16le PCM bytes.
func samplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
