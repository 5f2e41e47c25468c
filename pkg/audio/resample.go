package audio

import "fmt"

// Resampler converts s16le mono PCM between two fixed sample rates using
// linear interpolation, preserving fractional phase across chunk boundaries.
//
// The phase is tracked as an integer numerator over the output rate, so the
// carry is exact: feeding a stream through Process in arbitrary chunk sizes
// yields byte-identical output to processing it in one piece, and there is no
// periodic drift however many chunks are processed.
//
// A Resampler belongs to one direction of one call. It is not safe for
// concurrent use and must not be reused across calls; NewResampler returns
// fresh zeroed state.
type Resampler struct {
	srcRate int
	dstRate int

	// last is the most recent input sample from the previous chunk; phase is
	// the fractional output position within the interval that starts at last,
	// in units of 1/dstRate of one source interval (0 <= phase < dstRate).
	last    int16
	phase   int
	started bool
}

// NewResampler creates a Resampler converting srcRate to dstRate.
// Both rates must be positive.
func NewResampler(srcRate, dstRate int) (*Resampler, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("audio: resampler rates must be positive, got %d -> %d", srcRate, dstRate)
	}
	return &Resampler{srcRate: srcRate, dstRate: dstRate}, nil
}

// Process resamples one chunk of s16le mono PCM, carrying phase from the
// previous call. If the chunk has an odd byte count it is rejected and the
// carried state is left untouched, so a corrupt frame cannot desynchronise
// the stream.
func (r *Resampler) Process(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("audio: resampler input has odd byte count %d", len(pcm))
	}
	if len(pcm) == 0 {
		return nil, nil
	}
	if r.srcRate == r.dstRate {
		out := make([]byte, len(pcm))
		copy(out, pcm)
		return out, nil
	}

	in := bytesToSamples(pcm)
	out := make([]int16, 0, len(in)*r.dstRate/r.srcRate+2)

	for _, next := range in {
		prev := r.last
		if !r.started {
			// First interval of the stream: hold the first sample flat instead
			// of ramping up from silence.
			prev = next
			r.started = true
		}

		// Emit every output sample that falls inside [prev, next). Output
		// positions are spaced srcRate apart in 1/dstRate units; the interval
		// is dstRate units long.
		for r.phase < r.dstRate {
			v := int32(prev) + (int32(next)-int32(prev))*int32(r.phase)/int32(r.dstRate)
			out = append(out, int16(v))
			r.phase += r.srcRate
		}
		r.phase -= r.dstRate
		r.last = next
	}

	return samplesToBytes(out), nil
}
