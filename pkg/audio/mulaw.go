package audio

// G.711 µ-law companding per ITU-T G.711. The encoder compresses 16-bit
// linear PCM to 8 bits using the standard bias/segment scheme; the decoder
// expands via a 256-entry table built at init time so the hot decode path is
// a single indexed load per sample.

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// mulawDecodeTable maps each µ-law byte to its linear 16-bit value.
var mulawDecodeTable [256]int16

func init() {
	for i := range 256 {
		u := ^uint8(i)
		sign := u & 0x80
		exponent := (u >> 4) & 0x07
		mantissa := u & 0x0F
		sample := (int32(mantissa)<<3 + mulawBias) << exponent
		sample -= mulawBias
		if sign != 0 {
			sample = -sample
		}
		mulawDecodeTable[i] = int16(sample)
	}
}

// EncodeMulawSample compresses one linear 16-bit sample to µ-law.
func EncodeMulawSample(sample int16) byte {
	s := int32(sample)
	sign := byte(0)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > mulawClip {
		s = mulawClip
	}
	s += mulawBias

	exponent := byte(7)
	for mask := int32(0x4000); mask != 0 && s&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte((s >> (exponent + 3)) & 0x0F)
	return ^(sign | exponent<<4 | mantissa)
}

// DecodeMulawSample expands one µ-law byte to a linear 16-bit sample.
func DecodeMulawSample(b byte) int16 {
	return mulawDecodeTable[b]
}

// DecodeMulaw expands a µ-law chunk into little-endian s16le PCM.
// The output is exactly twice the length of the input.
func DecodeMulaw(mulaw []byte) []byte {
	out := make([]byte, len(mulaw)*2)
	for i, b := range mulaw {
		s := mulawDecodeTable[b]
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// EncodeMulaw compresses little-endian s16le PCM into µ-law. A trailing odd
// byte is ignored; callers validate alignment before encoding.
func EncodeMulaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = EncodeMulawSample(s)
	}
	return out
}
