package borzoi

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func test_sidecar(transport sidecar_transport) *Sidecar {
	return &Sidecar{
		queues:    new_gpio_queues(),
		transport: transport,
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "sidecar-test"}),
	}
}

func read_supervisor_frame(t *testing.T, conn net.Conn) (byte, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck

	var hdr [2]byte
	var _, err = read_full(conn, hdr[:])
	require.NoError(t, err)

	var payload = make([]byte, int(hdr[1]))
	_, err = read_full(conn, payload)
	require.NoError(t, err)
	return hdr[0], payload
}

func TestSidecarOverSocket(t *testing.T) {
	var sock = filepath.Join(t.TempDir(), "supervisor.sock")
	var listener, listenErr = net.Listen("unix", sock)
	require.NoError(t, listenErr)
	defer listener.Close()

	var s = test_sidecar(NewSocketTransport(sock))
	s.Run()
	defer s.Stop()

	var conn, acceptErr = listener.Accept()
	require.NoError(t, acceptErr)
	defer conn.Close()

	// RT -> supervisor: a blob on from_rt shows up as a framed write.
	require.True(t, s.queues.push_from_rt(GpioDataBlob{1, 2, 3, 4}))

	var tag, payload = read_supervisor_frame(t, conn)
	assert.Equal(t, SIDECAR_TAG_GPIO, tag)
	assert.Equal(t, []byte{1, 2, 3, 4}, payload)

	// And MIDI fragments are framed with their own tag.
	require.True(t, s.queues.push_midi_from_rt([]byte{0x90, 0x40, 0x7F}))
	tag, payload = read_supervisor_frame(t, conn)
	assert.Equal(t, SIDECAR_TAG_MIDI, tag)
	assert.Equal(t, []byte{0x90, 0x40, 0x7F}, payload)

	// Supervisor -> RT: a written frame lands on to_rt.
	var _, writeErr = conn.Write([]byte{SIDECAR_TAG_GPIO, 4, 9, 8, 7, 6})
	require.NoError(t, writeErr)

	var deadline = time.Now().Add(5 * time.Second)
	for {
		var blob, ok = s.queues.pop_to_rt()
		if ok {
			assert.Equal(t, GpioDataBlob{9, 8, 7, 6}, blob)
			break
		}
		require.True(t, time.Now().Before(deadline), "blob never reached to_rt")
		time.Sleep(time.Millisecond)
	}
}

func TestSidecarSurvivesAbsentSupervisor(t *testing.T) {
	var sock = filepath.Join(t.TempDir(), "nobody-home.sock")

	var s = test_sidecar(NewSocketTransport(sock))
	s.Run()

	// Nothing to connect to; data is dropped, nothing hangs.
	s.queues.push_from_rt(GpioDataBlob{1, 1, 1, 1})
	time.Sleep(50 * time.Millisecond)
	s.Stop()
}

// The serial transport speaks the same framing over a pty pair.
func TestSerialTransportFraming(t *testing.T) {
	var master, slave, ptyErr = pty.Open()
	require.NoError(t, ptyErr)
	defer master.Close()
	defer slave.Close()

	var transport = NewSerialTransport(slave.Name(), 0)
	require.NoError(t, transport.connect())
	defer transport.disconnect()

	require.NoError(t, transport.write_frame(SIDECAR_TAG_GPIO, []byte{5, 6, 7, 8}))

	var buf [6]byte
	master.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
	var _, readErr = read_file_full(master, buf[:])
	require.NoError(t, readErr)
	assert.Equal(t, []byte{SIDECAR_TAG_GPIO, 4, 5, 6, 7, 8}, buf[:])

	var _, writeErr = master.Write([]byte{SIDECAR_TAG_MIDI, 2, 0xF8, 0xFE})
	require.NoError(t, writeErr)

	var payload [16]byte
	var tag, n, frameErr = transport.read_frame(payload[:])
	require.NoError(t, frameErr)
	assert.Equal(t, SIDECAR_TAG_MIDI, tag)
	assert.Equal(t, []byte{0xF8, 0xFE}, payload[:n])
}

func read_file_full(f *os.File, buf []byte) (int, error) {
	var got = 0
	for got < len(buf) {
		var n, err = f.Read(buf[got:])
		got += n
		if err != nil {
			return got, err
		}
	}
	return got, nil
}
