package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Error taxonomy for the engine.
 *
 *		Everything that can fail does so with an *EngineError
 *		carrying a stable negative code.  The RT loop itself never
 *		reports at runtime; it just exits, and the failure becomes
 *		visible through Close().
 *
 *		If a Linux errno was attached to the failure its textual
 *		form is appended to the message.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

type Code int

const (
	CodeOk Code = 0

	// Parameter discovery and compatibility.
	CodeParamRead          Code = -1
	CodeVersionMismatch    Code = -2
	CodeBufferSizeMismatch Code = -3
	CodeInvalidPlatform    Code = -4
	CodeInvalidFormat      Code = -5

	// External device.
	CodeDeviceInactive  Code = -6
	CodeInvalidFirmware Code = -7

	// Resources.
	CodeDeviceOpen      Code = -8
	CodeMmap            Code = -9
	CodeMemoryLock      Code = -10
	CodeBufferAlloc     Code = -11
	CodeSocket          Code = -12
	CodeUnsupportedCombination Code = -13

	// Task lifecycle.
	CodeTaskAffinity Code = -14
	CodeTaskCreate   Code = -15
	CodeTaskStart    Code = -16
	CodeTaskStop     Code = -17
	CodeUnmap        Code = -18
	CodeDeviceClose  Code = -19

	CodeInvalidState Code = -20
)

var code_text = map[Code]string{
	CodeOk:                     "no error",
	CodeParamRead:              "failed to read driver parameter",
	CodeVersionMismatch:        "driver version mismatch",
	CodeBufferSizeMismatch:     "buffer size mismatch between caller and driver",
	CodeInvalidPlatform:        "driver reported an invalid platform type",
	CodeInvalidFormat:          "driver reported an invalid codec format",
	CodeDeviceInactive:         "secondary controller inactive",
	CodeInvalidFirmware:        "secondary controller has invalid firmware",
	CodeDeviceOpen:             "failed to open audio device",
	CodeMmap:                   "failed to mmap driver buffer",
	CodeMemoryLock:             "failed to lock memory",
	CodeBufferAlloc:            "failed to allocate user buffers",
	CodeSocket:                 "sidecar socket failure",
	CodeUnsupportedCombination: "unsupported codec format, buffer size and channel count combination",
	CodeTaskAffinity:           "failed to set task affinity",
	CodeTaskCreate:             "failed to create realtime task",
	CodeTaskStart:              "failed to start realtime task",
	CodeTaskStop:               "failed to stop realtime task",
	CodeUnmap:                  "failed to unmap driver buffer",
	CodeDeviceClose:            "failed to close audio device",
	CodeInvalidState:           "operation not valid in current engine state",
}

// EngineError is the concrete error type returned by the fallible engine
// operations; SetGpioPin is the exception and passes the driver's error
// through unwrapped.  Errno is zero unless a system call failure was
// captured.
type EngineError struct {
	Code  Code
	Errno unix.Errno
	Extra string // optional detail, e.g. the parameter name
}

func (e *EngineError) Error() string {
	var s = code_text[e.Code]
	if s == "" {
		s = fmt.Sprintf("unknown error %d", e.Code)
	}
	if e.Extra != "" {
		s += ": " + e.Extra
	}
	if e.Errno != 0 {
		s += " (" + e.Errno.Error() + ")"
	}
	return s
}

// Is lets errors.Is match two engine errors by code alone.
func (e *EngineError) Is(target error) bool {
	var t *EngineError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func engine_error(code Code) *EngineError {
	return &EngineError{Code: code}
}

func errno_error(code Code, err error) *EngineError {
	var e = &EngineError{Code: code}
	var errno unix.Errno
	if errors.As(err, &errno) {
		e.Errno = errno
	} else if err != nil {
		e.Extra = err.Error()
	}
	return e
}

// CodeOf flattens an error to its stable negative code, for callers that
// want the traditional integer-status view of the engine.  A nil error is
// CodeOk; an error that did not come from the engine maps to CodeInvalidState.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOk
	}
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInvalidState
}

/*-------------------------------------------------------------------
 *
 * Name:	ErrorText
 *
 * Purpose:	Stable human-readable string for a negative status code.
 *
 *		Codes unknown to this build still produce something
 *		printable rather than an empty string.
 *
 *---------------------------------------------------------------*/

func ErrorText(code Code) string {
	var s, ok = code_text[code]
	if !ok {
		return fmt.Sprintf("unknown error %d", code)
	}
	return s
}
