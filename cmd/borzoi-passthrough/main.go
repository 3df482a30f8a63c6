package main

/*------------------------------------------------------------------
 *
 * Purpose:	Straight wire from the inputs to the outputs, with an
 *		optional gain.  The simplest useful check that the whole
 *		input path works.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	borzoi "github.com/doismellburning/borzoi/src"
)

func main() {
	var frames = pflag.IntP("frames", "b", 64, "Frames per period.  Must match the driver.")
	var gain = pflag.Float64P("gain", "g", 1.0, "Linear gain applied on the way through.")
	var version = pflag.Bool("version", false, "Print version and exit.")
	pflag.Parse()

	if *version {
		fmt.Println(borzoi.Version())
		return
	}

	var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "borzoi-passthrough"})

	var g = float32(*gain)
	var process = func(in []float32, out []float32, _ any) {
		for i := range in {
			out[i] = g * in[i]
		}
	}

	var engine = borzoi.New()

	if err := engine.Init(); err != nil {
		logger.Fatal("init", "err", err)
	}
	if err := engine.Open(*frames, process, nil, 0); err != nil {
		logger.Fatal("open", "err", err, "status", borzoi.CodeOf(err))
	}
	if err := engine.StartRealtime(); err != nil {
		engine.Close() //nolint:errcheck
		logger.Fatal("start", "err", err)
	}

	logger.Info("running",
		"rate", engine.SampleRate(),
		"in", engine.InputChannels(),
		"out", engine.OutputChannels())

	var signals = make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	if err := engine.Close(); err != nil {
		logger.Error("close", "err", err)
		os.Exit(1)
	}
}
