package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Serial-port transport for the sidecar, for boards where
 *		the host supervisor sits on a UART rather than a unix
 *		socket.  Same framing as the socket transport.
 *
 *---------------------------------------------------------------*/

import (
	"sync"

	"github.com/pkg/term"
)

type serial_transport struct {
	devicename string
	baud       int

	mu   sync.Mutex
	port *term.Term
}

func NewSerialTransport(devicename string, baud int) *serial_transport {
	return &serial_transport{devicename: devicename, baud: baud}
}

func (t *serial_transport) connect() error {
	var _, err = t.get_port()
	return err
}

func (t *serial_transport) get_port() (*term.Term, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return t.port, nil
	}

	var port, err = term.Open(t.devicename, term.RawMode)
	if err != nil {
		return nil, &EngineError{Code: CodeSocket, Extra: err.Error()}
	}

	switch t.baud {
	case 0: /* Leave it alone. */
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		port.SetSpeed(t.baud) //nolint:errcheck
	default:
		port.SetSpeed(115200) //nolint:errcheck
	}

	port.SetReadTimeout(SIDECAR_IO_TIMEOUT) //nolint:errcheck

	t.port = port
	return port, nil
}

func (t *serial_transport) read_frame(buf []byte) (byte, int, error) {
	var port, portErr = t.get_port()
	if portErr != nil {
		return 0, 0, portErr
	}

	var hdr [2]byte
	if err := serial_read_full(port, hdr[:]); err != nil {
		return 0, 0, err
	}
	var n = int(hdr[1])
	if n > len(buf) {
		n = len(buf)
	}
	if err := serial_read_full(port, buf[:n]); err != nil {
		return 0, 0, err
	}
	return hdr[0], n, nil
}

func (t *serial_transport) write_frame(tag byte, payload []byte) error {
	var port, portErr = t.get_port()
	if portErr != nil {
		return portErr
	}

	var frame = make([]byte, 0, 2+len(payload))
	frame = append(frame, tag, byte(len(payload)))
	frame = append(frame, payload...)

	var written, err = port.Write(frame)
	if err == nil && written != len(frame) {
		return engine_error(CodeSocket)
	}
	return err
}

func (t *serial_transport) disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		t.port.Close()
		t.port = nil
	}
}

func serial_read_full(port *term.Term, buf []byte) error {
	var got = 0
	for got < len(buf) {
		var n, err = port.Read(buf[got:])
		if n > 0 {
			got += n
		}
		if err != nil {
			return err
		}
	}
	return nil
}
