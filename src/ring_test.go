package borzoi

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRingOpenRejectsNonsense(t *testing.T) {
	assert.Nil(t, ring_open(0, 8))
	assert.Nil(t, ring_open(4, 0))
	assert.NotNil(t, ring_open(4, 8))
}

func TestRingSendReceive(t *testing.T) {
	var r = ring_open(4, 3)

	assert.True(t, r.is_empty())

	assert.Equal(t, 4, r.send([]byte{1, 2, 3, 4}))
	assert.Equal(t, 4, r.send([]byte{5, 6, 7, 8}))
	assert.Equal(t, 4, r.send([]byte{9, 10, 11, 12}))

	// Full at exactly capacity elements.
	assert.Equal(t, 0, r.send([]byte{13, 14, 15, 16}))

	var buf [4]byte
	assert.Equal(t, 4, r.receive(buf[:]))
	assert.Equal(t, []byte{1, 2, 3, 4}, buf[:])

	// One slot freed, sendable again.
	assert.Equal(t, 4, r.send([]byte{13, 14, 15, 16}))

	assert.Equal(t, 4, r.receive(buf[:]))
	assert.Equal(t, []byte{5, 6, 7, 8}, buf[:])
	assert.Equal(t, 4, r.receive(buf[:]))
	assert.Equal(t, 4, r.receive(buf[:]))
	assert.Equal(t, []byte{13, 14, 15, 16}, buf[:])

	assert.True(t, r.is_empty())
	assert.Equal(t, 0, r.receive(buf[:]))
}

func TestRingShortElement(t *testing.T) {
	var r = ring_open(8, 2)

	assert.Equal(t, 3, r.send([]byte{1, 2, 3}))

	var buf [8]byte
	assert.Equal(t, 8, r.receive(buf[:]))
	assert.Equal(t, []byte{1, 2, 3}, buf[:3])
}

func TestRingOversizeSendPanics(t *testing.T) {
	var r = ring_open(4, 2)
	assert.Panics(t, func() {
		r.send([]byte{1, 2, 3, 4, 5})
	})
}

// The dequeue sequence must always be a prefix of the enqueue sequence,
// send must fail exactly when the ring holds capacity elements, and
// receive must fail exactly when it holds none.
func TestRingModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var capacity = rapid.IntRange(1, 16).Draw(t, "capacity")
		var r = ring_open(4, capacity)

		var sent []uint32
		var received []uint32
		var next = uint32(0)

		var steps = rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "push") {
				var buf [4]byte
				binary.LittleEndian.PutUint32(buf[:], next)
				var n = r.send(buf[:])
				if len(sent)-len(received) == capacity {
					assert.Equal(t, 0, n, "send into a full ring must fail")
				} else {
					assert.Equal(t, 4, n)
					sent = append(sent, next)
					next++
				}
			} else {
				var buf [4]byte
				var n = r.receive(buf[:])
				if len(sent) == len(received) {
					assert.Equal(t, 0, n, "receive from an empty ring must fail")
					assert.True(t, r.is_empty())
				} else {
					assert.Equal(t, 4, n)
					received = append(received, binary.LittleEndian.Uint32(buf[:]))
				}
			}
		}

		require.GreaterOrEqual(t, len(sent), len(received))
		for i := range received {
			assert.Equal(t, sent[i], received[i], "dequeue order diverged at %d", i)
		}
	})
}

// One producer, one consumer, full speed.  Everything sent arrives once
// and in order.
func TestRingConcurrent(t *testing.T) {
	const COUNT = 100000

	var r = ring_open(8, 64)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		var buf [8]byte
		for i := uint64(0); i < COUNT; {
			binary.LittleEndian.PutUint64(buf[:], i)
			if r.send(buf[:]) != 0 {
				i++
			}
		}
	}()

	var buf [8]byte
	for expected := uint64(0); expected < COUNT; {
		if r.receive(buf[:]) == 0 {
			continue
		}
		require.Equal(t, expected, binary.LittleEndian.Uint64(buf[:]))
		expected++
	}

	wg.Wait()
	assert.True(t, r.is_empty())
}
