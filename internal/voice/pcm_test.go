package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePCM16_ClampsOutOfRange(t *testing.T) {
	data := EncodePCM16([]float32{0, 1, -1, 2.5, -2.5})
	require.Len(t, data, 10)

	samples := DecodePCM16(data)
	assert.InDelta(t, 0, samples[0], 0.001)
	assert.InDelta(t, 1, samples[1], 0.001)
	assert.InDelta(t, -1, samples[2], 0.001)
	// Overdriven input clamps to full scale instead of wrapping.
	assert.InDelta(t, 1, samples[3], 0.001)
	assert.InDelta(t, -1, samples[4], 0.001)
}

func TestEncodeDecodePCM16_RoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.75, -0.75, 0.99, -0.99}
	out := DecodePCM16(EncodePCM16(in))
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 0.001, "sample %d", i)
	}
}

func TestResample_Identity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3, 0.4}
	assert.Equal(t, in, Resample(in, 16000, 16000))
}

func TestResample_Downsample(t *testing.T) {
	in := make([]float32, 480) // 10ms at 48kHz
	for i := range in {
		in[i] = float32(i) / 480
	}

	out := Resample(in, 48000, 16000)
	assert.Len(t, out, 160)

	// A monotone ramp stays monotone through linear interpolation.
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], out[i-1])
	}
}

func TestResample_Upsample(t *testing.T) {
	in := []float32{0, 1}
	out := Resample(in, 8000, 16000)
	assert.Len(t, out, 4)
	assert.InDelta(t, 0, out[0], 0.001)
}

func TestResample_Empty(t *testing.T) {
	assert.Empty(t, Resample(nil, 48000, 16000))
}
