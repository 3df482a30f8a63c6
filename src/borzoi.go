// Package borzoi bridges an application audio-processing callback to a
// kernel-resident real-time audio driver.
//
// The driver exposes a memory-mapped double-buffered audio ring and an
// interrupt-wait ioctl.  Borzoi wakes a real-time thread on every hardware
// audio period, converts the codec's integer samples to and from
// deinterleaved 32-bit floats, invokes the user callback, and drives the
// control path (CV gates, secondary-microcontroller synchronization) that
// shares the same interrupt period.
package borzoi

/* Interesting sizes, all in frames (one frame = one sample per channel). */

const MIN_FRAMES_PER_PERIOD = 8
const MAX_FRAMES_PER_PERIOD = 512

/* Codec sample formats reported by the driver. */

type codec_format_t int

const (
	FORMAT_INT24_LJ   codec_format_t = iota // 24 bits left-justified in 32
	FORMAT_INT24_I2S                        // 24 bits I2S justified (one bit down from MSB)
	FORMAT_INT24_RJ                         // 24 bits right-justified, not sign-extended
	FORMAT_INT24_32RJ                       // 24 bits right-justified, sign-extended by codec
	FORMAT_INT32                            // full 32 bits

	NUM_CODEC_FORMATS
)

/* Platform variants.  NATIVE talks straight to the codec.  ASYNC and SYNC
   go through a secondary microcontroller; SYNC additionally feeds a
   per-period timing error back for clock correction. */

type platform_t int

const (
	PLATFORM_NATIVE platform_t = iota
	PLATFORM_ASYNC
	PLATFORM_SYNC

	NUM_PLATFORMS
)

/* Debug flags accepted by Open. */

const DEBUG_SIGNAL_ON_MODE_SWITCH = uint32(1) << 0

// ProcessFn is the application audio callback.  It runs on the real-time
// thread once per period.  in and out hold frames*codecChannels float32
// samples, deinterleaved: channel k occupies entries [k*frames, (k+1)*frames).
// It must not block, allocate, or take longer than one period.
type ProcessFn func(in []float32, out []float32, userData any)
