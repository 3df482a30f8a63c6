package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Non-RT forwarder between the engine's GPIO/MIDI queues
 *		and the host supervisor.
 *
 *		The RT thread only ever touches the lock-free queues; it
 *		neither knows nor cares whether the supervisor is
 *		connected.  This side owns the transport, the timeouts,
 *		and the reconnect backoff.
 *
 *		Wire format to the supervisor, both directions:
 *
 *		  tag byte ('G' gpio, 'M' midi) | length byte | payload
 *
 *---------------------------------------------------------------*/

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const SIDECAR_IO_TIMEOUT = 250 * time.Millisecond
const SIDECAR_WRITE_PACE = 100 * time.Millisecond
const SIDECAR_QUEUE_FULL_SPIN = 10 * time.Millisecond
const SIDECAR_RECONNECT_BACKOFF = 2 * time.Second

const SIDECAR_TAG_GPIO = byte('G')
const SIDECAR_TAG_MIDI = byte('M')

// sidecar_transport is the byte pipe to the supervisor.  The unix-socket
// transport below is the usual one; serial_transport (serial.go) covers
// boards where the supervisor hangs off a UART instead.
type sidecar_transport interface {
	connect() error
	read_frame(buf []byte) (tag byte, n int, err error)
	write_frame(tag byte, payload []byte) error
	disconnect()
}

type Sidecar struct {
	queues    *gpio_queues
	transport sidecar_transport
	logger    *log.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSidecar wires a forwarder to an opened engine.  Call Run to start it
// and Stop before closing the engine.
func NewSidecar(e *Engine, transport sidecar_transport) *Sidecar {
	return &Sidecar{
		queues:    e.sidecar_queues(),
		transport: transport,
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "sidecar"}),
	}
}

func (s *Sidecar) Run() {
	s.stop = make(chan struct{})
	s.wg.Add(2)
	go s.reader()
	go s.writer()
}

func (s *Sidecar) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.transport.disconnect()
}

func (s *Sidecar) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	reader
 *
 * Purpose:	Supervisor -> RT.  Frames read off the transport become
 *		blobs on the to_rt queue.  A full queue means the RT
 *		side is not consuming; wait a little and retry rather
 *		than dropping supervisor commands.
 *
 *---------------------------------------------------------------*/

func (s *Sidecar) reader() {
	defer s.wg.Done()

	var buf [64]byte
	for !s.stopping() {
		if err := s.transport.connect(); err != nil {
			s.logger.Warn("supervisor not reachable", "err", err)
			s.sleep_or_stop(SIDECAR_RECONNECT_BACKOFF)
			continue
		}

		var tag, n, err = s.transport.read_frame(buf[:])
		if err != nil {
			if !is_timeout(err) {
				s.logger.Warn("read failed, reconnecting", "err", err)
				s.transport.disconnect()
			}
			continue
		}

		if tag != SIDECAR_TAG_GPIO || n < GPIO_BLOB_BYTES {
			continue
		}

		var blob GpioDataBlob
		copy(blob[:], buf[:GPIO_BLOB_BYTES])
		for s.queues.to_rt.send(blob[:]) == 0 {
			if s.stopping() {
				return
			}
			time.Sleep(SIDECAR_QUEUE_FULL_SPIN)
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	writer
 *
 * Purpose:	RT -> supervisor.  Drains the from_rt and MIDI queues at
 *		a gentle pace.  Transport failures just drop the data;
 *		the RT engine has already moved on.
 *
 *---------------------------------------------------------------*/

func (s *Sidecar) writer() {
	defer s.wg.Done()

	for !s.stopping() {
		var blob GpioDataBlob
		for s.queues.from_rt.receive(blob[:]) != 0 {
			if err := s.transport.write_frame(SIDECAR_TAG_GPIO, blob[:]); err != nil {
				s.logger.Warn("gpio write dropped", "err", err)
				s.transport.disconnect()
				break
			}
		}

		var frag [1 + MIDI_FRAGMENT_BYTES]byte
		for s.queues.midi_from_rt.receive(frag[:]) != 0 {
			var n = int(frag[0])
			if err := s.transport.write_frame(SIDECAR_TAG_MIDI, frag[1:1+n]); err != nil {
				s.logger.Warn("midi write dropped", "err", err)
				s.transport.disconnect()
				break
			}
		}

		s.sleep_or_stop(SIDECAR_WRITE_PACE)
	}
}

func (s *Sidecar) sleep_or_stop(d time.Duration) {
	select {
	case <-s.stop:
	case <-time.After(d):
	}
}

func is_timeout(err error) bool {
	var nerr, ok = err.(net.Error)
	return ok && nerr.Timeout()
}

/* Unix socket transport.  The reader and writer goroutines share one
   connection; the mutex only guards the conn pointer, never the I/O, so a
   blocked read cannot starve writes. */

type socket_transport struct {
	path string

	mu   sync.Mutex
	conn net.Conn
}

func NewSocketTransport(path string) *socket_transport {
	return &socket_transport{path: path}
}

func (t *socket_transport) connect() error {
	var _, err = t.get_conn()
	return err
}

func (t *socket_transport) get_conn() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}
	var conn, err = net.DialTimeout("unix", t.path, SIDECAR_IO_TIMEOUT)
	if err != nil {
		return nil, &EngineError{Code: CodeSocket, Extra: err.Error()}
	}
	t.conn = conn
	return conn, nil
}

func (t *socket_transport) read_frame(buf []byte) (byte, int, error) {
	var conn, connErr = t.get_conn()
	if connErr != nil {
		return 0, 0, connErr
	}
	conn.SetReadDeadline(time.Now().Add(SIDECAR_IO_TIMEOUT)) //nolint:errcheck

	var hdr [2]byte
	if _, err := read_full(conn, hdr[:]); err != nil {
		return 0, 0, err
	}
	var n = int(hdr[1])
	if n > len(buf) {
		n = len(buf)
	}
	if _, err := read_full(conn, buf[:n]); err != nil {
		return 0, 0, err
	}
	return hdr[0], n, nil
}

func (t *socket_transport) write_frame(tag byte, payload []byte) error {
	var conn, connErr = t.get_conn()
	if connErr != nil {
		return connErr
	}
	conn.SetWriteDeadline(time.Now().Add(SIDECAR_IO_TIMEOUT)) //nolint:errcheck

	var frame = make([]byte, 0, 2+len(payload))
	frame = append(frame, tag, byte(len(payload)))
	frame = append(frame, payload...)
	var _, err = conn.Write(frame)
	return err
}

func (t *socket_transport) disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

func read_full(conn net.Conn, buf []byte) (int, error) {
	var got = 0
	for got < len(buf) {
		var n, err = conn.Read(buf[got:])
		got += n
		if err != nil {
			return got, err
		}
	}
	return got, nil
}
