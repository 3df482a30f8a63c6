package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Carve the driver's shared memory region into the
 *		per-period buffers both sides agree on.
 *
 *		The driver maps a single contiguous region of
 *		DRIVER_BUFFER_PAGES pages, shared read/write.  NATIVE
 *		platforms put the four audio half-buffers first and the
 *		two CV gate words at the tail.  ASYNC and SYNC platforms
 *		prefix every audio half-buffer with a fixed device-control
 *		slot (opaque to us, owned by the driver and the secondary
 *		controller) and an audio-control packet slot.
 *
 *		None of the carved ranges alias and all of them sit
 *		strictly inside the mapped region; layout construction
 *		fails loudly otherwise rather than letting the RT loop
 *		scribble somewhere exciting.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"unsafe"
)

const DRIVER_BUFFER_PAGES = 20

// Fixed slot sizes on ASYNC/SYNC platforms.  The device control slot is
// traffic between the driver and the secondary controller; the engine only
// accounts for it.
const DEVICE_CTRL_SLOT_BYTES = 2048
const AUDIO_CTRL_SLOT_BYTES = 1024

const WORD_BYTES = 4

type buffer_layout struct {
	audio_in  [2][]int32 // interleaved codec words, one per half
	audio_out [2][]int32

	// ASYNC/SYNC only.
	rx_ctrl [2][]byte // audio control packet slots on the input side
	tx_ctrl [2][]byte // and on the output side

	// NATIVE only: pointers to the CV gate words within the region.
	cv_out_word *uint32
	cv_in_word  *uint32
}

func region_words(region []byte, offset int, words int) []int32 {
	return unsafe.Slice((*int32)(unsafe.Pointer(&region[offset])), words)
}

/*-------------------------------------------------------------------
 *
 * Name:	new_buffer_layout
 *
 * Purpose:	Compute the layout for one (frames, channels, platform)
 *		configuration over the mapped region.
 *
 * Returns:	The layout, or an error if the configuration cannot fit.
 *
 *---------------------------------------------------------------*/

func new_buffer_layout(region []byte, frames int, channels int, platform platform_t) (*buffer_layout, error) {
	var l = &buffer_layout{}
	var period_words = frames * channels
	var period_bytes = period_words * WORD_BYTES
	var offset = 0

	var needed int
	switch platform {
	case PLATFORM_NATIVE:
		needed = 4*period_bytes + 2*WORD_BYTES
	case PLATFORM_ASYNC, PLATFORM_SYNC:
		needed = 4 * (DEVICE_CTRL_SLOT_BYTES + AUDIO_CTRL_SLOT_BYTES + period_bytes)
	default:
		return nil, fmt.Errorf("unknown platform %d", platform)
	}
	if needed > len(region) {
		return nil, fmt.Errorf("layout needs %d bytes but region has %d", needed, len(region))
	}

	switch platform {
	case PLATFORM_NATIVE:
		// audio_in[0] | audio_in[1] | audio_out[0] | audio_out[1] | cv_out | cv_in
		for half := 0; half < 2; half++ {
			l.audio_in[half] = region_words(region, offset, period_words)
			offset += period_bytes
		}
		for half := 0; half < 2; half++ {
			l.audio_out[half] = region_words(region, offset, period_words)
			offset += period_bytes
		}
		l.cv_out_word = (*uint32)(unsafe.Pointer(&region[offset]))
		offset += WORD_BYTES
		l.cv_in_word = (*uint32)(unsafe.Pointer(&region[offset]))
		offset += WORD_BYTES

	case PLATFORM_ASYNC, PLATFORM_SYNC:
		// Per half and direction: device ctrl slot | audio ctrl slot | audio.
		// Input side first.
		for half := 0; half < 2; half++ {
			offset += DEVICE_CTRL_SLOT_BYTES
			l.rx_ctrl[half] = region[offset : offset+AUDIO_CTRL_SLOT_BYTES]
			offset += AUDIO_CTRL_SLOT_BYTES
			l.audio_in[half] = region_words(region, offset, period_words)
			offset += period_bytes
		}
		for half := 0; half < 2; half++ {
			offset += DEVICE_CTRL_SLOT_BYTES
			l.tx_ctrl[half] = region[offset : offset+AUDIO_CTRL_SLOT_BYTES]
			offset += AUDIO_CTRL_SLOT_BYTES
			l.audio_out[half] = region_words(region, offset, period_words)
			offset += period_bytes
		}
	}

	return l, nil
}
