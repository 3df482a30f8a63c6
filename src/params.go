package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Read the integer parameters the driver publishes as
 *		one-value-per-file scalars under a sysfs-style root.
 *
 *		Each read opens the file, reads a handful of characters,
 *		closes, and parses.  Failures come back as negative values
 *		rather than errors so a caller can tell "parameter missing"
 *		apart from a legitimate zero without extra plumbing.
 *
 *---------------------------------------------------------------*/

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const DEFAULT_PARAM_ROOT = "/sys/class/audio_rtdm"

/* Parameter file names. */

const (
	PARAM_SAMPLE_RATE     = "sample_rate"
	PARAM_INPUT_CHANNELS  = "input_channels"
	PARAM_OUTPUT_CHANNELS = "output_channels"
	PARAM_BUFFER_SIZE     = "buffer_size"
	PARAM_CODEC_FORMAT    = "codec_format"
	PARAM_PLATFORM_TYPE   = "platform_type"
	PARAM_MAJOR_VERSION   = "major_version"
	PARAM_MINOR_VERSION   = "minor_version"
	PARAM_USB_AUDIO_TYPE  = "usb_audio_type"
	PARAM_IRQ_AFFINITY    = "irq_affinity"
)

/* Driver interface version this engine was built against. */

const REQUIRED_MAJOR_VERSION = 1
const REQUIRED_MINOR_VERSION = 2

// A parameter value never needs more than this many characters.
const PARAM_READ_MAX = 25

type param_reader struct {
	root string
}

func new_param_reader(root string) *param_reader {
	if root == "" {
		root = DEFAULT_PARAM_ROOT
	}
	return &param_reader{root: root}
}

/*-------------------------------------------------------------------
 *
 * Name:	read_int
 *
 * Purpose:	Read one named scalar.
 *
 * Returns:	The parsed value, or a negative number on any failure
 *		(missing file, short read, garbage content).
 *
 *---------------------------------------------------------------*/

func (p *param_reader) read_int(name string) int {
	var f, openErr = os.Open(filepath.Join(p.root, name))
	if openErr != nil {
		return -1
	}
	defer f.Close()

	var buf [PARAM_READ_MAX]byte
	var n, readErr = f.Read(buf[:])
	if readErr != nil || n == 0 {
		return -1
	}

	var v, parseErr = strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if parseErr != nil {
		return -1
	}
	return v
}

/* Everything Open needs to know about the hardware, fixed afterwards. */

type audio_config struct {
	sample_rate     int
	input_channels  int
	output_channels int
	codec_channels  int // max of input and output; the codec interleave width
	frames          int // frames per period
	format          codec_format_t
	platform        platform_t
}

/*-------------------------------------------------------------------
 *
 * Name:	discover_config
 *
 * Purpose:	Read and validate the full driver configuration.
 *
 * Inputs:	frames	- The period size the caller asked for.  The driver
 *			  is built with a fixed size; a mismatch is a hard
 *			  error, not a negotiation.
 *
 * Returns:	The immutable audio configuration, or an engine error
 *		naming the first thing that went wrong.
 *
 *---------------------------------------------------------------*/

func (p *param_reader) discover_config(frames int) (*audio_config, error) {
	var major = p.read_int(PARAM_MAJOR_VERSION)
	var minor = p.read_int(PARAM_MINOR_VERSION)
	if major < 0 || minor < 0 {
		return nil, &EngineError{Code: CodeParamRead, Extra: "driver version"}
	}
	if major != REQUIRED_MAJOR_VERSION || minor < REQUIRED_MINOR_VERSION {
		return nil, &EngineError{
			Code:  CodeVersionMismatch,
			Extra: "driver " + strconv.Itoa(major) + "." + strconv.Itoa(minor),
		}
	}

	var cfg = &audio_config{frames: frames}

	cfg.sample_rate = p.read_int(PARAM_SAMPLE_RATE)
	if cfg.sample_rate <= 0 {
		return nil, &EngineError{Code: CodeParamRead, Extra: PARAM_SAMPLE_RATE}
	}

	cfg.input_channels = p.read_int(PARAM_INPUT_CHANNELS)
	cfg.output_channels = p.read_int(PARAM_OUTPUT_CHANNELS)
	if cfg.input_channels < 0 || cfg.output_channels < 0 {
		return nil, &EngineError{Code: CodeParamRead, Extra: "channel counts"}
	}
	cfg.codec_channels = cfg.input_channels
	if cfg.output_channels > cfg.codec_channels {
		cfg.codec_channels = cfg.output_channels
	}

	var driver_frames = p.read_int(PARAM_BUFFER_SIZE)
	if driver_frames < 0 {
		return nil, &EngineError{Code: CodeParamRead, Extra: PARAM_BUFFER_SIZE}
	}
	if driver_frames != frames {
		return nil, &EngineError{
			Code:  CodeBufferSizeMismatch,
			Extra: "driver has " + strconv.Itoa(driver_frames) + ", caller wants " + strconv.Itoa(frames),
		}
	}

	var format = p.read_int(PARAM_CODEC_FORMAT)
	if format < 0 || format >= int(NUM_CODEC_FORMATS) {
		return nil, &EngineError{Code: CodeInvalidFormat, Extra: strconv.Itoa(format)}
	}
	cfg.format = codec_format_t(format)

	var platform = p.read_int(PARAM_PLATFORM_TYPE)
	if platform < 0 || platform >= int(NUM_PLATFORMS) {
		return nil, &EngineError{Code: CodeInvalidPlatform, Extra: strconv.Itoa(platform)}
	}
	cfg.platform = platform_t(platform)

	return cfg, nil
}
