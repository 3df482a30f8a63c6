package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Engine lifecycle and the public operations.
 *
 *		Phases move strictly forward:
 *
 *		START -> DEVICE_OPEN -> MMAP -> USER_BUFFERS -> TASK_STARTED
 *
 *		and any failure unwinds, in reverse, exactly the phases
 *		that were reached.  Unwind is idempotent; Close on a
 *		closed engine is a successful no-op, so a caller can
 *		always retry Open after a failure.
 *
 *		Everything here runs on the caller's thread.  The only
 *		state shared with the RT loop is atomic: the stop flag,
 *		the period counter, the two gate words, and the health
 *		counters the stats log reads.
 *
 *---------------------------------------------------------------*/

import (
	"os"
	"sync/atomic"
	"time"
)

type phase_t int

const (
	PHASE_START phase_t = iota
	PHASE_DEVICE_OPEN
	PHASE_MMAP
	PHASE_USER_BUFFERS
	PHASE_TASK_STARTED
)

// How long Close gives the cease/mute packet to reach the secondary
// controller before the driver is disarmed.
const CLOSE_GRACE = 500 * time.Millisecond

// How long Close will wait for the RT task to notice PROC_STOP.
const TASK_JOIN_TIMEOUT = 5 * time.Second

type Engine struct {
	drv         audio_driver
	params      *param_reader
	device_path string
	page_size   int

	// Promotes the RT thread (affinity pin + SCHED_FIFO).  Injected so
	// the loop can be exercised without privileges.
	promote func() error

	cfg    *audio_config
	region []byte
	layout *buffer_layout
	conv   *sample_converter
	dll    *dll_filter
	queues *gpio_queues

	user_in  []float32
	user_out []float32

	callback    ProcessFn
	user_data   any
	debug_flags uint32

	phase       phase_t
	initialized bool

	stop_requested atomic.Bool
	periods        atomic.Uint64
	gate_in_word   atomic.Uint32
	gate_out_word  atomic.Uint32
	ceases_sent    atomic.Uint64
	last_error_ns  atomic.Int64 // raw timing error, SYNC
	last_corr_ns   atomic.Int64 // smoothed correction, SYNC

	task_done chan struct{}
}

// New builds an engine wired to the real driver at the default paths.
func New() *Engine {
	return &Engine{
		drv:         &ioctl_driver{},
		params:      new_param_reader(""),
		device_path: DEFAULT_DEVICE_PATH,
		page_size:   default_page_size(),
		promote:     promote_rt_thread,
	}
}

// new_engine_with injects a driver and a parameter root.  Tests drive the
// whole lifecycle through this without any kernel in sight.
func new_engine_with(drv audio_driver, param_root string) *Engine {
	return &Engine{
		drv:       drv,
		params:    new_param_reader(param_root),
		page_size: default_page_size(),
		promote:   func() error { return nil },
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	Init
 *
 * Purpose:	One-time process setup: lock all current and future
 *		pages so the RT thread can never fault.
 *
 *---------------------------------------------------------------*/

func (e *Engine) Init() error {
	if e.initialized {
		return nil
	}
	if err := lock_memory(); err != nil {
		return err
	}
	e.initialized = true
	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:	Open
 *
 * Purpose:	Discover and validate the driver configuration, open and
 *		map the device, build the converter and user buffers.
 *
 * Inputs:	frames		- Frames per period.  Must match what the
 *				  driver was built with.
 *		callback	- Called once per period on the RT thread.
 *		userData	- Handed back to the callback untouched.
 *		debugFlags	- DEBUG_* bits.
 *
 * Errors:	Version mismatch, parameter read, buffer-size mismatch,
 *		platform or format out of range, device open, mmap,
 *		buffer alloc, unsupported converter triple.  On every
 *		one of them the engine is back in the START phase.
 *
 *---------------------------------------------------------------*/

func (e *Engine) Open(frames int, callback ProcessFn, userData any, debugFlags uint32) error {
	if e.phase != PHASE_START {
		return engine_error(CodeInvalidState)
	}
	if callback == nil {
		return engine_error(CodeInvalidState)
	}

	var cfg, cfgErr = e.params.discover_config(frames)
	if cfgErr != nil {
		return cfgErr
	}

	var conv = new_sample_converter(cfg.format, cfg.frames, cfg.codec_channels)
	if conv == nil {
		return engine_error(CodeUnsupportedCombination)
	}

	if err := e.drv.open(e.device_path); err != nil {
		return err
	}
	e.phase = PHASE_DEVICE_OPEN

	var region, mmapErr = e.drv.mmap(DRIVER_BUFFER_PAGES * e.page_size)
	if mmapErr != nil {
		e.unwind()
		return mmapErr
	}
	e.phase = PHASE_MMAP

	var layout, layoutErr = new_buffer_layout(region, cfg.frames, cfg.codec_channels, cfg.platform)
	if layoutErr != nil {
		e.unwind()
		return &EngineError{Code: CodeMmap, Extra: layoutErr.Error()}
	}

	var samples = cfg.frames * cfg.codec_channels
	e.user_in = alloc_sample_buffer(samples)
	e.user_out = alloc_sample_buffer(samples)
	if e.user_in == nil || e.user_out == nil {
		e.unwind()
		return engine_error(CodeBufferAlloc)
	}
	e.phase = PHASE_USER_BUFFERS

	e.cfg = cfg
	e.region = region
	e.layout = layout
	e.conv = conv
	e.queues = new_gpio_queues()
	if cfg.platform == PLATFORM_SYNC {
		e.dll = new_dll_filter(DLL_DEFAULT_T60_PERIODS)
	}
	e.callback = callback
	e.user_data = userData
	e.debug_flags = debugFlags
	e.stop_requested.Store(false)
	e.periods.Store(0)
	e.ceases_sent.Store(0)

	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:	StartRealtime
 *
 * Purpose:	Spawn the RT task and arm the driver's data path.
 *
 *		The task pins itself to the RT core and switches to
 *		SCHED_FIFO before PROC_START; this thread waits for that
 *		to succeed and then restores its own affinity to all
 *		cores.
 *
 *---------------------------------------------------------------*/

func (e *Engine) StartRealtime() error {
	if e.phase != PHASE_USER_BUFFERS {
		return engine_error(CodeInvalidState)
	}

	e.task_done = make(chan struct{})

	var ready = make(chan error, 1)
	go e.rt_task(ready)

	var startErr = <-ready
	if startErr != nil {
		<-e.task_done
		e.task_done = nil
		// Failures here leave the engine back in START so the caller
		// can retry Open from scratch.
		e.unwind()
		return startErr
	}

	// The RT task is running and pinned; this thread goes back to the
	// full set.  Failure here is not worth tearing the engine down for.
	restore_full_affinity() //nolint:errcheck

	e.phase = PHASE_TASK_STARTED
	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:	Close
 *
 * Purpose:	Orderly teardown from whatever phase we reached.
 *
 *		Raises the stop flag, sleeps a grace period so the
 *		cease/mute packet makes it out, disarms the driver, joins
 *		the RT task, then unwinds buffers, mapping and device.
 *
 * Returns:	nil, or the task-stop failure.  Closing twice is a
 *		successful no-op.
 *
 *---------------------------------------------------------------*/

func (e *Engine) Close() error {
	if e.phase == PHASE_START {
		return nil
	}

	var stopErr error

	if e.phase == PHASE_TASK_STARTED {
		e.stop_requested.Store(true)
		time.Sleep(CLOSE_GRACE)

		stopErr = e.drv.proc_stop()

		select {
		case <-e.task_done:
		case <-time.After(TASK_JOIN_TIMEOUT):
			if stopErr == nil {
				stopErr = engine_error(CodeTaskStop)
			}
		}
		e.task_done = nil
		e.phase = PHASE_USER_BUFFERS
	}

	e.unwind()
	return stopErr
}

// unwind releases, in reverse order, everything acquired up to the current
// phase and returns the engine to START.  Safe to call repeatedly.
func (e *Engine) unwind() {
	switch e.phase {
	case PHASE_USER_BUFFERS:
		e.user_in = nil
		e.user_out = nil
		fallthrough
	case PHASE_MMAP:
		e.drv.munmap() //nolint:errcheck
		e.region = nil
		e.layout = nil
		fallthrough
	case PHASE_DEVICE_OPEN:
		e.drv.close() //nolint:errcheck
	}

	e.cfg = nil
	e.conv = nil
	e.dll = nil
	e.callback = nil
	e.phase = PHASE_START
}

/* Queries.  All cheap, all safe to call from any non-RT thread. */

// SampleRate reports the codec sample rate in Hz, 0 before Open.
func (e *Engine) SampleRate() float64 {
	if e.cfg == nil {
		return 0
	}
	return float64(e.cfg.sample_rate)
}

func (e *Engine) InputChannels() int {
	if e.cfg == nil {
		return 0
	}
	return e.cfg.input_channels
}

func (e *Engine) OutputChannels() int {
	if e.cfg == nil {
		return 0
	}
	return e.cfg.output_channels
}

// SampleCount is the number of frames processed since StartRealtime:
// completed periods times frames per period.  Monotonic between periods.
func (e *Engine) SampleCount() uint64 {
	if e.cfg == nil {
		return 0
	}
	return e.periods.Load() * uint64(e.cfg.frames)
}

// TimeNowUs is monotonic microseconds, 0 on failure.
func (e *Engine) TimeNowUs() uint64 {
	return time_now_us()
}

// OutputLatencyUs reports the double-buffer latency in microseconds,
// 0 before Open.
func (e *Engine) OutputLatencyUs() uint64 {
	if e.cfg == nil || e.cfg.sample_rate == 0 {
		return 0
	}
	return uint64(2*e.cfg.frames) * 1000000 / uint64(e.cfg.sample_rate)
}

// GateIn returns the CV gate word last read from the codec/controller.
func (e *Engine) GateIn() uint32 {
	return e.gate_in_word.Load()
}

// SetGateOut sets the CV gate word presented to the codec/controller on
// the next period.
func (e *Engine) SetGateOut(w uint32) {
	e.gate_out_word.Store(w)
}

// SetGpioPin asks the driver to configure and drive one controller GPIO
// pin directly, outside the packet path.  Valid any time the device is
// open.
func (e *Engine) SetGpioPin(pin uint32, direction uint32, value uint32) error {
	if e.phase == PHASE_START {
		return engine_error(CodeInvalidState)
	}
	return e.drv.gpio_pin_set(pin, direction, value)
}

// sidecar_queues exposes the sidecar-facing GPIO queues.  Nil before Open.
func (e *Engine) sidecar_queues() *gpio_queues {
	return e.queues
}

func alloc_sample_buffer(samples int) []float32 {
	// Slabs this size come back at least 16-byte aligned from the
	// allocator.
	return make([]float32, samples)
}

func default_page_size() int {
	return os.Getpagesize()
}
