package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Sample conversion between the codec's interleaved integer
 *		layout and the deinterleaved float32 buffers handed to the
 *		user callback.
 *
 *		A converter is specialized at Open for the exact
 *		(format, frames, channels) triple the driver reported, so
 *		the RT loop pays one indirect call per direction per
 *		period and nothing else.
 *
 *		Float samples are clipped to [-1, 1] on the way out.
 *		Negative full scale maps to the format's minimum exactly;
 *		positive full scale saturates to the maximum.
 *
 *---------------------------------------------------------------*/

const FLOAT_TO_INT24 = 8388608.0    // 2^23
const INT24_TO_FLOAT = 1.0 / FLOAT_TO_INT24
const FLOAT_TO_INT32 = 2147483648.0 // 2^31
const INT32_TO_FLOAT = 1.0 / FLOAT_TO_INT32

const INT24_MAX = 8388607
const INT24_MIN = -8388608

type convert_fn func(dst []float32, src []int32)
type deconvert_fn func(dst []int32, src []float32)

type sample_converter struct {
	frames   int
	channels int
	to_float convert_fn   // interleaved codec words -> deinterleaved floats
	to_codec deconvert_fn // deinterleaved floats -> interleaved codec words
}

var supported_channel_counts = []int{2, 4, 6, 8}

func frames_supported(frames int) bool {
	if frames < MIN_FRAMES_PER_PERIOD || frames > MAX_FRAMES_PER_PERIOD {
		return false
	}
	return frames&(frames-1) == 0
}

func channels_supported(channels int) bool {
	for _, c := range supported_channel_counts {
		if channels == c {
			return true
		}
	}
	return false
}

/*-------------------------------------------------------------------
 *
 * Name:	new_sample_converter
 *
 * Purpose:	Build the converter pair for one (format, frames, channels)
 *		triple.
 *
 * Returns:	nil for any unsupported triple.  The lifecycle manager
 *		turns that into CodeUnsupportedCombination before any
 *		realtime work starts.
 *
 *---------------------------------------------------------------*/

func new_sample_converter(format codec_format_t, frames int, channels int) *sample_converter {
	if !frames_supported(frames) || !channels_supported(channels) {
		return nil
	}

	var c = &sample_converter{frames: frames, channels: channels}

	switch format {
	case FORMAT_INT24_LJ:
		c.to_float = func(dst []float32, src []int32) { deinterleave_int24_lj(dst, src, frames, channels) }
		c.to_codec = func(dst []int32, src []float32) { interleave_int24_lj(dst, src, frames, channels) }
	case FORMAT_INT24_I2S:
		c.to_float = func(dst []float32, src []int32) { deinterleave_int24_i2s(dst, src, frames, channels) }
		c.to_codec = func(dst []int32, src []float32) { interleave_int24_i2s(dst, src, frames, channels) }
	case FORMAT_INT24_RJ:
		c.to_float = func(dst []float32, src []int32) { deinterleave_int24_rj(dst, src, frames, channels) }
		c.to_codec = func(dst []int32, src []float32) { interleave_int24_rj(dst, src, frames, channels) }
	case FORMAT_INT24_32RJ:
		c.to_float = func(dst []float32, src []int32) { deinterleave_int24_32rj(dst, src, frames, channels) }
		c.to_codec = func(dst []int32, src []float32) { interleave_int24_32rj(dst, src, frames, channels) }
	case FORMAT_INT32:
		c.to_float = func(dst []float32, src []int32) { deinterleave_int32(dst, src, frames, channels) }
		c.to_codec = func(dst []int32, src []float32) { interleave_int32(dst, src, frames, channels) }
	default:
		return nil
	}

	return c
}

/* Deinterleave: dst[k*frames + n] = scale * signextend(src[n*channels + k]). */

func deinterleave_int24_lj(dst []float32, src []int32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var out = dst[k*frames:]
		for n := 0; n < frames; n++ {
			out[n] = float32(src[n*channels+k]>>8) * INT24_TO_FLOAT
		}
	}
}

func deinterleave_int24_i2s(dst []float32, src []int32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var out = dst[k*frames:]
		for n := 0; n < frames; n++ {
			// The codec parks the word one bit below the MSB.  A logical
			// shift up restores the sign position before the arithmetic
			// shift back down.
			out[n] = float32(int32(uint32(src[n*channels+k])<<1)>>8) * INT24_TO_FLOAT
		}
	}
}

func deinterleave_int24_rj(dst []float32, src []int32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var out = dst[k*frames:]
		for n := 0; n < frames; n++ {
			out[n] = float32(src[n*channels+k]<<8>>8) * INT24_TO_FLOAT
		}
	}
}

func deinterleave_int24_32rj(dst []float32, src []int32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var out = dst[k*frames:]
		for n := 0; n < frames; n++ {
			out[n] = float32(src[n*channels+k]) * INT24_TO_FLOAT
		}
	}
}

func deinterleave_int32(dst []float32, src []int32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var out = dst[k*frames:]
		for n := 0; n < frames; n++ {
			out[n] = float32(float64(src[n*channels+k]) * INT32_TO_FLOAT)
		}
	}
}

/* Interleave: clip, scale, pack into the codec bit layout. */

func clip_to_int24(x float32) int32 {
	var scaled = float64(x) * FLOAT_TO_INT24
	if scaled >= INT24_MAX {
		return INT24_MAX
	}
	if scaled <= INT24_MIN {
		return INT24_MIN
	}
	return int32(scaled)
}

func clip_to_int32(x float32) int32 {
	var scaled = float64(x) * FLOAT_TO_INT32
	if scaled >= 2147483647 {
		return 2147483647
	}
	if scaled <= -2147483648 {
		return -2147483648
	}
	return int32(scaled)
}

func interleave_int24_lj(dst []int32, src []float32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var in = src[k*frames:]
		for n := 0; n < frames; n++ {
			dst[n*channels+k] = clip_to_int24(in[n]) << 8
		}
	}
}

func interleave_int24_i2s(dst []int32, src []float32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var in = src[k*frames:]
		for n := 0; n < frames; n++ {
			dst[n*channels+k] = (clip_to_int24(in[n]) << 7) & 0x7FFFFF00
		}
	}
}

func interleave_int24_rj(dst []int32, src []float32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var in = src[k*frames:]
		for n := 0; n < frames; n++ {
			dst[n*channels+k] = clip_to_int24(in[n]) & 0x00FFFFFF
		}
	}
}

func interleave_int24_32rj(dst []int32, src []float32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var in = src[k*frames:]
		for n := 0; n < frames; n++ {
			dst[n*channels+k] = clip_to_int24(in[n])
		}
	}
}

func interleave_int32(dst []int32, src []float32, frames int, channels int) {
	for k := 0; k < channels; k++ {
		var in = src[k*frames:]
		for n := 0; n < frames; n++ {
			dst[n*channels+k] = clip_to_int32(in[n])
		}
	}
}
