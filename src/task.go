package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	OS plumbing for the real-time task: locked memory,
 *		FIFO scheduling, and CPU affinity.
 *
 *		The RT goroutine wires itself to an OS thread and then
 *		promotes that thread.  Affinity discipline: the RT thread
 *		is pinned to CPU 0 before the driver is armed; the
 *		spawning thread goes back to the full CPU set once the RT
 *		task is confirmed running.
 *
 *---------------------------------------------------------------*/

import (
	"runtime"

	"golang.org/x/sys/unix"
)

const RT_PRIORITY = 90
const RT_CPU = 0

// lock_memory pins all current and future pages.  Done once at Init so
// nothing the RT thread touches can fault.
func lock_memory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return errno_error(CodeMemoryLock, err)
	}
	return nil
}

// set_rt_scheduling promotes the calling thread to SCHED_FIFO at the
// engine's fixed priority.  Must run on a locked OS thread.
func set_rt_scheduling() error {
	var attr = unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: RT_PRIORITY,
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return errno_error(CodeTaskCreate, err)
	}
	return nil
}

// pin_to_rt_cpu restricts the calling thread to the RT core.
func pin_to_rt_cpu() error {
	var set unix.CPUSet
	set.Zero()
	set.Set(RT_CPU)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errno_error(CodeTaskAffinity, err)
	}
	return nil
}

// promote_rt_thread is the full promotion the real engine wants: pinned
// to the RT core, then SCHED_FIFO.
func promote_rt_thread() error {
	if err := pin_to_rt_cpu(); err != nil {
		return err
	}
	return set_rt_scheduling()
}

// restore_full_affinity puts the calling thread back on every core.
func restore_full_affinity() error {
	var set unix.CPUSet
	set.Zero()
	for cpu := 0; cpu < runtime.NumCPU(); cpu++ {
		set.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errno_error(CodeTaskAffinity, err)
	}
	return nil
}

// time_now_us is monotonic microseconds, 0 on failure.
func time_now_us() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1000000 + uint64(ts.Nsec)/1000
}
