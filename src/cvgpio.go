package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Mirror CV gate bits onto host GPIO lines through the
 *		gpio character device, so external gear (or a scope) can
 *		watch the gate word the codec is reporting without going
 *		through the supervisor.
 *
 *		Strictly non-RT; a polling goroutine reads the atomic
 *		gate word the RT loop publishes and pushes changed bits
 *		out.  Bit i of the gate word drives lines[i].
 *
 *---------------------------------------------------------------*/

import (
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const GATE_MIRROR_POLL = 2 * time.Millisecond

type GateMirror struct {
	engine *Engine
	lines  *gpiocdev.Lines
	nlines int

	last uint32
	stop chan struct{}
	wg   sync.WaitGroup
}

/*-------------------------------------------------------------------
 *
 * Name:	NewGateMirror
 *
 * Purpose:	Claim the given lines on the given chip as outputs.
 *
 * Inputs:	chip	- e.g. "gpiochip0".
 *		offsets	- line offsets, lowest gate bit first.  At most 32.
 *
 *---------------------------------------------------------------*/

func NewGateMirror(e *Engine, chip string, offsets []int) (*GateMirror, error) {
	if len(offsets) > 32 {
		offsets = offsets[:32]
	}

	var initial = make([]int, len(offsets))
	var lines, err = gpiocdev.RequestLines(chip, offsets,
		gpiocdev.AsOutput(initial...),
		gpiocdev.WithConsumer("borzoi-gate"))
	if err != nil {
		return nil, err
	}

	return &GateMirror{
		engine: e,
		lines:  lines,
		nlines: len(offsets),
	}, nil
}

func (m *GateMirror) Run() {
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.loop()
}

func (m *GateMirror) Stop() {
	close(m.stop)
	m.wg.Wait()
	m.lines.Close() //nolint:errcheck
}

func (m *GateMirror) loop() {
	defer m.wg.Done()
	var ticker = time.NewTicker(GATE_MIRROR_POLL)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			var gate = m.engine.GateIn()
			if gate == m.last {
				continue
			}
			m.last = gate

			var values = make([]int, m.nlines)
			for i := 0; i < m.nlines; i++ {
				values[i] = int((gate >> uint(i)) & 1)
			}
			m.lines.SetValues(values) //nolint:errcheck
		}
	}
}
