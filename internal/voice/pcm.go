package voice

import "encoding/binary"

// Resample converts mono samples from one rate to another by linear
// interpolation. A no-op when the rates match.
func Resample(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}

	ratio := float64(from) / float64(to)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		outLen = 1
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}

// EncodePCM16 converts floating-point samples in [-1, 1] to little-endian
// signed 16-bit PCM, clamping out-of-range values.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}

		var value int16
		if sample < 0 {
			value = int16(sample * 0x8000)
		} else {
			value = int16(sample * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(value))
	}
	return out
}

// DecodePCM16 converts little-endian signed 16-bit PCM back to
// floating-point samples.
func DecodePCM16(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		value := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(value) / 0x8000
	}
	return out
}
