package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	The real-time loop.  One cooperatively scheduled thread
 *		that blocks in the kernel until the next hardware period,
 *		runs the platform body, and acknowledges.
 *
 *		The loop never reports errors at runtime; a failing ioctl
 *		just ends it, and the driver drives teardown from there.
 *		The user callback is trusted and not guarded.
 *
 *---------------------------------------------------------------*/

import (
	"runtime"
	"sync/atomic"
)

// Periods of DLL settling before the first user callback on SYNC
// platforms.  The filter needs its history populated before the
// corrections it emits are worth acting on.
const SYNC_SETTLING_PERIODS = DLL_DEFAULT_T60_PERIODS

/*-------------------------------------------------------------------
 *
 * Name:	rt_task
 *
 * Purpose:	Body of the RT goroutine.  Wires itself to an OS thread,
 *		pins to the RT core, goes SCHED_FIFO, arms the driver,
 *		and then loops until an ioctl says otherwise.
 *
 * Inputs:	ready	- Receives nil once the driver is armed, or the
 *			  startup error.  StartRealtime blocks on this.
 *
 *---------------------------------------------------------------*/

func (e *Engine) rt_task(ready chan<- error) {
	defer close(e.task_done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := e.promote(); err != nil {
		ready <- err
		return
	}
	if err := e.drv.proc_start(); err != nil {
		ready <- err
		return
	}
	ready <- nil

	e.rt_loop()
}

func (e *Engine) rt_loop() {
	var warn_pending = e.debug_flags&DEBUG_SIGNAL_ON_MODE_SWITCH != 0
	var iterations uint64
	var seq uint32
	var settling = 0
	var filter_ticks uint64

	if e.cfg.platform == PLATFORM_SYNC {
		settling = SYNC_SETTLING_PERIODS
	}

	for {
		var idx, waitErr = e.drv.irq_wait()
		if waitErr != nil || idx < 0 {
			return
		}
		idx &= 1

		var correction int32
		var has_correction = false

		switch e.cfg.platform {
		case PLATFORM_NATIVE:
			e.native_body(idx)

		case PLATFORM_ASYNC:
			seq++
			e.async_body(idx, seq)

		case PLATFORM_SYNC:
			seq++
			filter_ticks++
			correction = e.sync_correction(idx, filter_ticks)
			has_correction = true
			if settling > 0 {
				settling--
				e.sync_settling_body(idx, seq)
			} else {
				e.async_body(idx, seq)
			}
		}

		iterations++
		if warn_pending && iterations >= 2 {
			// Best effort; a driver that does not know this
			// request must never take the loop down.
			e.drv.set_mode_switch_warning(true) //nolint:errcheck
			warn_pending = false
		}

		if err := e.drv.userproc_finished(correction, has_correction); err != nil {
			return
		}
		e.periods.Add(1)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	native_body
 *
 * Purpose:	One period on a NATIVE platform: straight to the codec,
 *		CV gates are plain words shared with the kernel.
 *
 *---------------------------------------------------------------*/

func (e *Engine) native_body(idx int) {
	var l = e.layout

	if e.stop_requested.Load() {
		zero_words(l.audio_out[0])
		zero_words(l.audio_out[1])
		return
	}

	e.gate_in_word.Store(atomic.LoadUint32(l.cv_in_word))

	e.conv.to_float(e.user_in, l.audio_in[idx])
	e.callback(e.user_in, e.user_out, e.user_data)
	e.conv.to_codec(l.audio_out[idx], e.user_out)

	atomic.StoreUint32(l.cv_out_word, e.gate_out_word.Load())
}

/*-------------------------------------------------------------------
 *
 * Name:	async_body
 *
 * Purpose:	One period through the secondary controller: control
 *		packets bracket the audio on both sides.  Also the
 *		steady-state SYNC body.
 *
 *---------------------------------------------------------------*/

func (e *Engine) async_body(idx int, seq uint32) {
	var l = e.layout

	e.gate_in_word.Store(read_gate_in(l.rx_ctrl[idx]))
	parse_rx_packet(l.rx_ctrl[idx], e.queues)

	e.conv.to_float(e.user_in, l.audio_in[idx])
	e.callback(e.user_in, e.user_out, e.user_data)
	e.conv.to_codec(l.audio_out[idx], e.user_out)

	e.build_tx(l.tx_ctrl[idx], seq)
}

// sync_settling_body is the SYNC prologue: control traffic only, no user
// audio until the DLL has settled.
func (e *Engine) sync_settling_body(idx int, seq uint32) {
	var l = e.layout

	e.gate_in_word.Store(read_gate_in(l.rx_ctrl[idx]))
	parse_rx_packet(l.rx_ctrl[idx], e.queues)

	e.build_tx(l.tx_ctrl[idx], seq)
}

// sync_correction runs the DLL every period to keep its state current but
// only reports a non-zero correction once every DLL_CORRECTION_DOWNSAMPLING
// periods, which bounds the control bandwidth the kernel sees.
func (e *Engine) sync_correction(idx int, filter_ticks uint64) int32 {
	var err_ns = read_timing_error(e.layout.rx_ctrl[idx])
	e.last_error_ns.Store(int64(err_ns))

	var corr = int32(e.dll.tick(float64(err_ns)))
	e.last_corr_ns.Store(int64(corr))

	if filter_ticks%DLL_CORRECTION_DOWNSAMPLING != 0 {
		return 0
	}
	return corr
}

// build_tx assembles the outgoing packet: cease while stopping, otherwise
// GPIO-carrying when the supervisor has data queued, degrading to a plain
// default packet.
func (e *Engine) build_tx(pkt []byte, seq uint32) {
	var gate = e.gate_out_word.Load()

	if e.stop_requested.Load() {
		build_cease_packet(pkt, seq, gate)
		e.ceases_sent.Add(1)
		return
	}

	build_gpio_packet(pkt, seq, gate, e.queues)
}

func zero_words(w []int32) {
	for i := range w {
		w[i] = 0
	}
}
