package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Encode and decode the audio control packets exchanged
 *		with the secondary microcontroller on ASYNC and SYNC
 *		platforms.  One packet per direction per period, living
 *		in the fixed slot just ahead of each audio half-buffer.
 *
 *		Wire layout, little endian, 36 bytes:
 *
 *		  0   magic        "ACP1"
 *		  4   sequence     uint32
 *		  8   command      byte    0 = none, 1 = audio cease
 *		  9   payload type byte    0 = none, 1 = gpio, 2 = midi
 *		  10  payload len  byte    blob count (gpio) or bytes (midi)
 *		  11  reserved
 *		  12  cv gate      uint32
 *		  16  timing error int32   nanoseconds, rx only, SYNC only
 *		  20  payload      4 blobs of 4 bytes / up to 16 midi bytes
 *
 *		A packet without the magic is simply ignored; the
 *		controller boots later than we do and the first few
 *		periods read back whatever the driver zeroed.
 *
 *---------------------------------------------------------------*/

import "encoding/binary"

var packet_magic = [4]byte{'A', 'C', 'P', '1'}

const (
	PKT_OFF_MAGIC        = 0
	PKT_OFF_SEQ          = 4
	PKT_OFF_COMMAND      = 8
	PKT_OFF_PAYLOAD_TYPE = 9
	PKT_OFF_PAYLOAD_LEN  = 10
	PKT_OFF_GATE         = 12
	PKT_OFF_TIMING_ERROR = 16
	PKT_OFF_PAYLOAD      = 20

	PACKET_BYTES = PKT_OFF_PAYLOAD + MAX_GPIO_BLOBS_PER_PACKET*GPIO_BLOB_BYTES
)

const MAX_GPIO_BLOBS_PER_PACKET = 4

const (
	CMD_NONE        = byte(0)
	CMD_AUDIO_CEASE = byte(1)
)

const (
	PAYLOAD_NONE = byte(0)
	PAYLOAD_GPIO = byte(1)
	PAYLOAD_MIDI = byte(2)
)

func packet_has_magic(pkt []byte) bool {
	return len(pkt) >= PACKET_BYTES &&
		pkt[0] == packet_magic[0] && pkt[1] == packet_magic[1] &&
		pkt[2] == packet_magic[2] && pkt[3] == packet_magic[3]
}

func read_gate_in(pkt []byte) uint32 {
	if !packet_has_magic(pkt) {
		return 0
	}
	return binary.LittleEndian.Uint32(pkt[PKT_OFF_GATE:])
}

func read_timing_error(pkt []byte) int32 {
	if !packet_has_magic(pkt) {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(pkt[PKT_OFF_TIMING_ERROR:]))
}

/*-------------------------------------------------------------------
 *
 * Name:	parse_rx_packet
 *
 * Purpose:	Classify one incoming packet and hand its payload to the
 *		sidecar queues.  GPIO blobs go to from_rt; MIDI bytes go
 *		to the MIDI queue.  Runs on the RT thread, so everything
 *		here is non-blocking and drop-on-full.
 *
 * Returns:	false if the packet carried no magic and was ignored.
 *
 *---------------------------------------------------------------*/

func parse_rx_packet(pkt []byte, queues *gpio_queues) bool {
	if !packet_has_magic(pkt) {
		return false
	}

	var count = int(pkt[PKT_OFF_PAYLOAD_LEN])

	switch pkt[PKT_OFF_PAYLOAD_TYPE] {
	case PAYLOAD_GPIO:
		if count > MAX_GPIO_BLOBS_PER_PACKET {
			count = MAX_GPIO_BLOBS_PER_PACKET
		}
		for i := 0; i < count; i++ {
			var blob GpioDataBlob
			copy(blob[:], pkt[PKT_OFF_PAYLOAD+i*GPIO_BLOB_BYTES:])
			queues.push_from_rt(blob)
		}

	case PAYLOAD_MIDI:
		if count > MIDI_FRAGMENT_BYTES {
			count = MIDI_FRAGMENT_BYTES
		}
		queues.push_midi_from_rt(pkt[PKT_OFF_PAYLOAD : PKT_OFF_PAYLOAD+count])
	}

	return true
}

func write_packet_header(pkt []byte, seq uint32, cmd byte, gate uint32) {
	copy(pkt[PKT_OFF_MAGIC:], packet_magic[:])
	binary.LittleEndian.PutUint32(pkt[PKT_OFF_SEQ:], seq)
	pkt[PKT_OFF_COMMAND] = cmd
	pkt[PKT_OFF_PAYLOAD_TYPE] = PAYLOAD_NONE
	pkt[PKT_OFF_PAYLOAD_LEN] = 0
	pkt[PKT_OFF_PAYLOAD_LEN+1] = 0
	binary.LittleEndian.PutUint32(pkt[PKT_OFF_GATE:], gate)
	binary.LittleEndian.PutUint32(pkt[PKT_OFF_TIMING_ERROR:], 0)
}

// build_default_packet writes a plain acknowledgement carrying only the
// sequence number and the CV gate word.
func build_default_packet(pkt []byte, seq uint32, gate uint32) {
	write_packet_header(pkt, seq, CMD_NONE, gate)
}

// build_cease_packet tells the secondary controller to mute and stop
// clocking audio.  Emitted at least once during teardown.
func build_cease_packet(pkt []byte, seq uint32, gate uint32) {
	write_packet_header(pkt, seq, CMD_AUDIO_CEASE, gate)
}

/*-------------------------------------------------------------------
 *
 * Name:	build_gpio_packet
 *
 * Purpose:	Drain up to MAX_GPIO_BLOBS_PER_PACKET supervisor blobs from
 *		the to_rt queue into the outgoing packet.
 *
 * Returns:	The number of blobs packed.  Zero means the packet ended
 *		up being a plain default packet.
 *
 *---------------------------------------------------------------*/

func build_gpio_packet(pkt []byte, seq uint32, gate uint32, queues *gpio_queues) int {
	write_packet_header(pkt, seq, CMD_NONE, gate)

	var packed = 0
	for packed < MAX_GPIO_BLOBS_PER_PACKET {
		var blob, ok = queues.pop_to_rt()
		if !ok {
			break
		}
		copy(pkt[PKT_OFF_PAYLOAD+packed*GPIO_BLOB_BYTES:], blob[:])
		packed++
	}

	if packed > 0 {
		pkt[PKT_OFF_PAYLOAD_TYPE] = PAYLOAD_GPIO
		pkt[PKT_OFF_PAYLOAD_LEN] = byte(packed)
	}
	return packed
}

func set_packet_gate(pkt []byte, gate uint32) {
	binary.LittleEndian.PutUint32(pkt[PKT_OFF_GATE:], gate)
}
