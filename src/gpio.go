package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	The two lock-free queues that connect the RT thread's
 *		control-packet traffic to the non-RT sidecar which talks
 *		to the host supervisor.
 *
 *		to_rt   : supervisor -> RT.  Blobs popped here are packed
 *			  into outgoing control packets.
 *		from_rt : RT -> supervisor.  Blobs parsed out of incoming
 *			  control packets land here.
 *
 *		The RT side only ever does non-blocking push/pop.  When
 *		from_rt is full the newest payload is dropped; stalling
 *		the audio period to save a GPIO sample is the wrong trade.
 *
 *---------------------------------------------------------------*/

// GpioDataBlob is one GPIO sample as it travels in control packets:
// (bank, pin, value, flags), packed the way the secondary controller
// lays it out on the wire.
type GpioDataBlob [4]byte

const GPIO_BLOB_BYTES = 4

// Queue depth.  Sized for a supervisor that polls lazily; at one packet's
// worth of blobs per period this is several periods of slack.
const GPIO_QUEUE_CAPACITY = 64

// MIDI fragments ride the same control packets but get their own queue so
// the sidecar can frame them separately.
const MIDI_FRAGMENT_BYTES = 16
const MIDI_QUEUE_CAPACITY = 32

type gpio_queues struct {
	to_rt        *spsc_ring // element: GpioDataBlob
	from_rt      *spsc_ring // element: GpioDataBlob
	midi_from_rt *spsc_ring // element: 1 length byte + up to 16 payload bytes
}

func new_gpio_queues() *gpio_queues {
	return &gpio_queues{
		to_rt:        ring_open(GPIO_BLOB_BYTES, GPIO_QUEUE_CAPACITY),
		from_rt:      ring_open(GPIO_BLOB_BYTES, GPIO_QUEUE_CAPACITY),
		midi_from_rt: ring_open(1+MIDI_FRAGMENT_BYTES, MIDI_QUEUE_CAPACITY),
	}
}

// push_from_rt offers one blob to the supervisor side.  RT safe; drops and
// reports false when the queue is full.
func (q *gpio_queues) push_from_rt(blob GpioDataBlob) bool {
	return q.from_rt.send(blob[:]) != 0
}

// pop_to_rt fetches the next supervisor blob for the RT thread, if any.
func (q *gpio_queues) pop_to_rt() (GpioDataBlob, bool) {
	var blob GpioDataBlob
	if q.to_rt.receive(blob[:]) == 0 {
		return blob, false
	}
	return blob, true
}

func (q *gpio_queues) push_midi_from_rt(data []byte) bool {
	if len(data) > MIDI_FRAGMENT_BYTES {
		data = data[:MIDI_FRAGMENT_BYTES]
	}
	var frag [1 + MIDI_FRAGMENT_BYTES]byte
	frag[0] = byte(len(data))
	copy(frag[1:], data)
	return q.midi_from_rt.send(frag[:]) != 0
}
