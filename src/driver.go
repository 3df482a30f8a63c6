package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	The thin layer over the real-time audio driver's
 *		character device: open, mmap, and the four ioctls that
 *		make up the per-period handshake.
 *
 *		Everything the engine wants from the kernel goes through
 *		the audio_driver interface so the lifecycle and the RT
 *		loop can be exercised against an in-memory fake.  The
 *		ioctl_driver below is the real thing.
 *
 *		Contract per period: IRQ_WAIT blocks until the next
 *		hardware interrupt and returns the index of the half
 *		buffer userspace now owns; USERPROC_FINISHED hands it
 *		back, optionally with a signed nanosecond clock
 *		correction (SYNC platforms).
 *
 *---------------------------------------------------------------*/

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const DEFAULT_DEVICE_PATH = "/dev/rtdm/audio_rtdm"

type audio_driver interface {
	open(device string) error
	mmap(length int) ([]byte, error)

	proc_start() error
	irq_wait() (int, error)
	userproc_finished(correction int32, has_correction bool) error
	proc_stop() error

	// Best effort extras.
	set_mode_switch_warning(enable bool) error
	gpio_pin_set(pin uint32, direction uint32, value uint32) error

	munmap() error
	close() error
}

/* ioctl request numbers, built the same way the kernel's _IO macros do. */

const (
	ioc_nrshift   = 0
	ioc_typeshift = 8
	ioc_sizeshift = 16
	ioc_dirshift  = 30

	ioc_write = uintptr(1)
	ioc_read  = uintptr(2)
)

func ioc(dir uintptr, nr uintptr, size uintptr) uintptr {
	const ioc_type = uintptr('r')
	return dir<<ioc_dirshift | size<<ioc_sizeshift | ioc_type<<ioc_typeshift | nr<<ioc_nrshift
}

type gpio_pin_record struct {
	pin       uint32
	direction uint32
	value     uint32
}

var (
	ioctl_proc_start         = ioc(0, 0, 0)
	ioctl_irq_wait           = ioc(0, 1, 0)
	ioctl_userproc_finished  = ioc(ioc_write, 2, unsafe.Sizeof(int32(0)))
	ioctl_proc_stop          = ioc(0, 3, 0)
	ioctl_gpio_pin_set       = ioc(ioc_write, 4, unsafe.Sizeof(gpio_pin_record{}))
	ioctl_mode_switch_warn   = ioc(ioc_write, 5, unsafe.Sizeof(int32(0)))
)

type ioctl_driver struct {
	fd     int
	region []byte
}

func (d *ioctl_driver) open(device string) error {
	if device == "" {
		device = DEFAULT_DEVICE_PATH
	}
	var fd, err = unix.Open(device, unix.O_RDWR, 0)
	if err != nil {
		return errno_error(CodeDeviceOpen, err)
	}
	d.fd = fd
	return nil
}

func (d *ioctl_driver) mmap(length int) ([]byte, error) {
	var region, err = unix.Mmap(d.fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errno_error(CodeMmap, err)
	}
	d.region = region
	return region, nil
}

// ioctl returns the raw (non-negative) kernel return value, which IRQ_WAIT
// uses to carry the half-buffer index.
func (d *ioctl_driver) ioctl(req uintptr, arg uintptr) (int, error) {
	var r1, _, errno = unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, arg)
	if errno != 0 {
		return -1, errno
	}
	return int(r1), nil
}

func (d *ioctl_driver) proc_start() error {
	var _, err = d.ioctl(ioctl_proc_start, 0)
	if err != nil {
		return errno_error(CodeTaskStart, err)
	}
	return nil
}

func (d *ioctl_driver) irq_wait() (int, error) {
	return d.ioctl(ioctl_irq_wait, 0)
}

func (d *ioctl_driver) userproc_finished(correction int32, has_correction bool) error {
	var arg uintptr
	if has_correction {
		arg = uintptr(unsafe.Pointer(&correction))
	}
	var _, err = d.ioctl(ioctl_userproc_finished, arg)
	return err
}

func (d *ioctl_driver) proc_stop() error {
	var _, err = d.ioctl(ioctl_proc_stop, 0)
	if err != nil {
		return errno_error(CodeTaskStop, err)
	}
	return nil
}

func (d *ioctl_driver) set_mode_switch_warning(enable bool) error {
	var flag int32
	if enable {
		flag = 1
	}
	var _, err = d.ioctl(ioctl_mode_switch_warn, uintptr(unsafe.Pointer(&flag)))
	return err
}

func (d *ioctl_driver) gpio_pin_set(pin uint32, direction uint32, value uint32) error {
	var rec = gpio_pin_record{pin: pin, direction: direction, value: value}
	var _, err = d.ioctl(ioctl_gpio_pin_set, uintptr(unsafe.Pointer(&rec)))
	return err
}

func (d *ioctl_driver) munmap() error {
	if d.region == nil {
		return nil
	}
	var err = unix.Munmap(d.region)
	d.region = nil
	if err != nil {
		return errno_error(CodeUnmap, err)
	}
	return nil
}

func (d *ioctl_driver) close() error {
	if d.fd == 0 {
		return nil
	}
	var err = unix.Close(d.fd)
	d.fd = 0
	if err != nil {
		return errno_error(CodeDeviceClose, err)
	}
	return nil
}
