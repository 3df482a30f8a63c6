package main

/*------------------------------------------------------------------
 *
 * Purpose:	Test-tone generator.  Opens the engine, emits a sine on
 *		every output channel, and wires up whatever extras the
 *		config file asks for: supervisor sidecar, stats log,
 *		CV gate mirror.
 *
 *		Mostly useful for bring-up: if you can hear this, the
 *		driver, the converter and the RT loop are all alive.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	borzoi "github.com/doismellburning/borzoi/src"
)

type tone struct {
	phase     float64
	increment float64
	gain      float32
	frames    int
}

func (s *tone) process(_ []float32, out []float32, _ any) {
	var channels = len(out) / s.frames
	for n := 0; n < s.frames; n++ {
		var v = s.gain * float32(math.Sin(s.phase))
		s.phase += s.increment
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
		for k := 0; k < channels; k++ {
			out[k*s.frames+n] = v
		}
	}
}

func main() {
	var frames = pflag.IntP("frames", "b", 64, "Frames per period.  Must match the driver.")
	var freq = pflag.Float64P("frequency", "f", 440, "Tone frequency in Hz.")
	var gain = pflag.Float64P("gain", "g", 0.7, "Linear gain, 0 to 1.")
	var configPath = pflag.StringP("config", "c", "", "Optional YAML config file.")
	var version = pflag.Bool("version", false, "Print version and exit.")
	pflag.Parse()

	if *version {
		fmt.Println(borzoi.Version())
		return
	}

	var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "borzoi-sine"})

	var engine = borzoi.New()

	var cfg *borzoi.Config
	if *configPath != "" {
		var loadErr error
		cfg, loadErr = borzoi.LoadConfig(*configPath)
		if loadErr != nil {
			logger.Fatal("config", "err", loadErr)
		}
		cfg.Apply(engine)
		if cfg.Frames != 0 {
			*frames = cfg.Frames
		}
	}

	if err := engine.Init(); err != nil {
		logger.Fatal("init", "err", err)
	}

	var synth = &tone{gain: float32(*gain), frames: *frames}

	if err := engine.Open(*frames, synth.process, nil, 0); err != nil {
		logger.Fatal("open", "err", err, "status", borzoi.CodeOf(err))
	}

	synth.increment = 2 * math.Pi * *freq / engine.SampleRate()

	if err := engine.StartRealtime(); err != nil {
		engine.Close() //nolint:errcheck
		logger.Fatal("start", "err", err)
	}

	logger.Info("running",
		"rate", engine.SampleRate(),
		"channels", engine.OutputChannels(),
		"latency_us", engine.OutputLatencyUs())

	var sidecar *borzoi.Sidecar
	var stats *borzoi.StatsLogger
	var mirror *borzoi.GateMirror

	if cfg != nil {
		if transport := cfg.Transport(); transport != nil {
			sidecar = borzoi.NewSidecar(engine, transport)
			sidecar.Run()
		}
		if cfg.StatsDir != "" {
			stats = borzoi.NewStatsLogger(engine, cfg.StatsDir, 0)
			stats.Run()
		}
		if cfg.GateMirror.Chip != "" {
			var mirrorErr error
			mirror, mirrorErr = borzoi.NewGateMirror(engine, cfg.GateMirror.Chip, cfg.GateMirror.Lines)
			if mirrorErr != nil {
				logger.Warn("gate mirror unavailable", "err", mirrorErr)
			} else {
				mirror.Run()
			}
		}
	}

	var signals = make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	logger.Info("stopping", "samples", engine.SampleCount())

	if mirror != nil {
		mirror.Stop()
	}
	if stats != nil {
		stats.Stop()
	}
	if sidecar != nil {
		sidecar.Stop()
	}

	if err := engine.Close(); err != nil {
		logger.Error("close", "err", err)
		os.Exit(1)
	}
}
