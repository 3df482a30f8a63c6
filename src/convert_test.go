package borzoi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Independent encodings of a 24-bit value into each format's wire word,
// straight from the format table, used as the oracle below.
func encode24(format codec_format_t, v int32) int32 {
	switch format {
	case FORMAT_INT24_LJ:
		return v << 8
	case FORMAT_INT24_I2S:
		return (v << 7) & 0x7FFFFF00
	case FORMAT_INT24_RJ:
		return v & 0x00FFFFFF
	case FORMAT_INT24_32RJ:
		return v
	}
	panic("not a 24 bit format")
}

var int24_formats = []codec_format_t{
	FORMAT_INT24_LJ, FORMAT_INT24_I2S, FORMAT_INT24_RJ, FORMAT_INT24_32RJ,
}

var all_formats = append(append([]codec_format_t{}, int24_formats...), FORMAT_INT32)

// Representative 24-bit sample values: the boundaries plus a coarse ramp.
func sample_values_24() []int32 {
	var vals = []int32{INT24_MIN, INT24_MIN + 1, -1, 0, 1, INT24_MAX - 1, INT24_MAX}
	for v := int32(INT24_MIN); v < INT24_MAX-8191; v += 8191 {
		vals = append(vals, v)
	}
	return vals
}

func TestConverterUnsupportedTriples(t *testing.T) {
	assert.Nil(t, new_sample_converter(FORMAT_INT24_LJ, 7, 2), "frames not a power of two")
	assert.Nil(t, new_sample_converter(FORMAT_INT24_LJ, 4, 2), "frames too small")
	assert.Nil(t, new_sample_converter(FORMAT_INT24_LJ, 1024, 2), "frames too large")
	assert.Nil(t, new_sample_converter(FORMAT_INT24_LJ, 64, 3), "odd channel count")
	assert.Nil(t, new_sample_converter(NUM_CODEC_FORMATS, 64, 2), "bogus format")

	for _, frames := range []int{8, 16, 32, 64, 128, 256, 512} {
		for _, channels := range []int{2, 4, 6, 8} {
			for _, format := range all_formats {
				assert.NotNil(t, new_sample_converter(format, frames, channels),
					"format %d frames %d channels %d", format, frames, channels)
			}
		}
	}
}

// Codec -> float -> codec is the identity for every representable sample.
func TestConverterRoundTrip24(t *testing.T) {
	const FRAMES = 64
	const CHANNELS = 2

	for _, format := range int24_formats {
		var conv = new_sample_converter(format, FRAMES, CHANNELS)
		require.NotNil(t, conv)

		var vals = sample_values_24()
		var codec = make([]int32, FRAMES*CHANNELS)
		var floats = make([]float32, FRAMES*CHANNELS)
		var back = make([]int32, FRAMES*CHANNELS)

		for base := 0; base < len(vals); base += FRAMES * CHANNELS {
			for i := range codec {
				codec[i] = encode24(format, vals[(base+i)%len(vals)])
			}
			conv.to_float(floats, codec)
			conv.to_codec(back, floats)
			assert.Equal(t, codec, back, "format %d batch at %d", format, base)
		}
	}
}

// INT32 keeps its top 24 bits through float32; values aligned to 256 are
// exact round-trippers.
func TestConverterRoundTripInt32(t *testing.T) {
	const FRAMES = 64
	const CHANNELS = 2

	var conv = new_sample_converter(FORMAT_INT32, FRAMES, CHANNELS)
	require.NotNil(t, conv)

	var codec = make([]int32, FRAMES*CHANNELS)
	var floats = make([]float32, FRAMES*CHANNELS)
	var back = make([]int32, FRAMES*CHANNELS)

	var vals = sample_values_24()
	for i := range codec {
		codec[i] = vals[i%len(vals)] << 8
	}
	conv.to_float(floats, codec)
	conv.to_codec(back, floats)
	assert.Equal(t, codec, back)
}

// Float -> codec -> float reproduces a ramp in [-1, 1] to within 1e-6.
func TestConverterFloatRoundTrip(t *testing.T) {
	const FRAMES = 64
	const CHANNELS = 2
	const SAMPLES = FRAMES * CHANNELS

	for _, format := range all_formats {
		var conv = new_sample_converter(format, FRAMES, CHANNELS)
		require.NotNil(t, conv)

		var in = make([]float32, SAMPLES)
		for i := range in {
			in[i] = float32(-1.0 + 2.0*float64(i)/float64(SAMPLES-1))
		}

		var codec = make([]int32, SAMPLES)
		var out = make([]float32, SAMPLES)
		conv.to_codec(codec, in)
		conv.to_float(out, codec)

		// to_codec reads the deinterleaved layout and to_float writes it
		// back, so in and out line up position for position.
		for k := 0; k < CHANNELS; k++ {
			for n := 0; n < FRAMES; n++ {
				var deint = out[k*FRAMES+n]
				var orig = in[k*FRAMES+n]
				assert.InDelta(t, orig, deint, 1e-6, "format %d channel %d frame %d", format, k, n)
			}
		}
	}
}

// Positive full scale saturates to the format maximum; negative full scale
// hits the minimum exactly.
func TestConverterClipping(t *testing.T) {
	const FRAMES = 8
	const CHANNELS = 2
	const SAMPLES = FRAMES * CHANNELS

	var cases = []struct {
		format   codec_format_t
		max_word int32
		min_word int32
	}{
		{FORMAT_INT24_LJ, 0x7FFFFF * 256, -8388608 * 256},
		{FORMAT_INT24_I2S, (0x7FFFFF << 7) & 0x7FFFFF00, encode24(FORMAT_INT24_I2S, INT24_MIN)},
		{FORMAT_INT24_RJ, 0x7FFFFF, 0x800000},
		{FORMAT_INT24_32RJ, 8388607, -8388608},
		{FORMAT_INT32, 2147483647, -2147483648},
	}

	for _, tc := range cases {
		var conv = new_sample_converter(tc.format, FRAMES, CHANNELS)
		require.NotNil(t, conv)

		var in = make([]float32, SAMPLES)
		var codec = make([]int32, SAMPLES)

		for i := range in {
			in[i] = 2.0
		}
		conv.to_codec(codec, in)
		for i, w := range codec {
			if tc.format == FORMAT_INT32 {
				// (2^31-1) is not exact in float; allow the rounding.
				assert.InDelta(t, float64(tc.max_word), float64(w), 255, "format %d word %d", tc.format, i)
			} else {
				assert.Equal(t, tc.max_word, w, "format %d word %d", tc.format, i)
			}
		}

		for i := range in {
			in[i] = -2.0
		}
		conv.to_codec(codec, in)
		for i, w := range codec {
			assert.Equal(t, tc.min_word, w, "format %d word %d", tc.format, i)
		}
	}
}

// After to_codec, codec[n*Cc+k] must decode to the deinterleaved d[k*N+n].
func TestConverterInterleaveOrder(t *testing.T) {
	const FRAMES = 16
	const CHANNELS = 4

	var conv = new_sample_converter(FORMAT_INT24_32RJ, FRAMES, CHANNELS)
	require.NotNil(t, conv)

	var in = make([]float32, FRAMES*CHANNELS)
	for k := 0; k < CHANNELS; k++ {
		for n := 0; n < FRAMES; n++ {
			in[k*FRAMES+n] = float32(k*FRAMES+n) / FLOAT_TO_INT24 * 256
		}
	}

	var codec = make([]int32, FRAMES*CHANNELS)
	conv.to_codec(codec, in)

	for n := 0; n < FRAMES; n++ {
		for k := 0; k < CHANNELS; k++ {
			assert.Equal(t, int32((k*FRAMES+n)*256), codec[n*CHANNELS+k], "frame %d channel %d", n, k)
		}
	}
}

// A 440 Hz sine at gain 0.7, phase-aligned so a sample lands on the peak,
// reaches round(0.7 * (2^23-1)) << 8 in INT24_LJ.
func TestConverterSinePeak(t *testing.T) {
	const FRAMES = 64
	const CHANNELS = 2
	const RATE = 44100.0

	var conv = new_sample_converter(FORMAT_INT24_LJ, FRAMES, CHANNELS)
	require.NotNil(t, conv)

	var in = make([]float32, FRAMES*CHANNELS)
	for k := 0; k < CHANNELS; k++ {
		for n := 0; n < FRAMES; n++ {
			var phase = math.Pi/2 + 2*math.Pi*440.0*float64(n)/RATE
			in[k*FRAMES+n] = float32(0.7 * math.Sin(phase))
		}
	}

	var codec = make([]int32, FRAMES*CHANNELS)
	conv.to_codec(codec, in)

	var peak int32
	for _, w := range codec {
		if w > peak {
			peak = w
		}
	}

	var want = int32(math.Round(0.7*(1<<23-1))) << 8
	assert.InDelta(t, float64(want), float64(peak), 256, "peak within one 24-bit LSB")
}
