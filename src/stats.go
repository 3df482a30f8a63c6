package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Periodic CSV log of engine health: period count, sample
 *		count, and on SYNC platforms the raw timing error and
 *		the correction the DLL last produced.
 *
 *		Rather than one ever-growing file, daily names are
 *		generated in the configured directory and the current
 *		file is kept open between rows.  Typically left running
 *		for days on an installed board and eyeballed later.
 *
 *		Strictly non-RT: the sampler only reads atomics the RT
 *		loop publishes anyway.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

const STATS_FILE_PATTERN = "engine-%Y-%m-%d.csv"
const STATS_DEFAULT_INTERVAL = 10 * time.Second

type StatsLogger struct {
	engine   *Engine
	dir      string
	interval time.Duration
	logger   *log.Logger

	fp         *os.File
	open_fname string

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewStatsLogger(e *Engine, dir string, interval time.Duration) *StatsLogger {
	if interval <= 0 {
		interval = STATS_DEFAULT_INTERVAL
	}
	return &StatsLogger{
		engine:   e,
		dir:      dir,
		interval: interval,
		logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "stats"}),
	}
}

func (s *StatsLogger) Run() {
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.loop()
}

func (s *StatsLogger) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.term()
}

func (s *StatsLogger) loop() {
	defer s.wg.Done()
	var ticker = time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.write_row(time.Now().UTC())
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	write_row
 *
 * Purpose:	Append one snapshot.  Generates the day's file name,
 *		rolls the open file over when the date changes, and
 *		writes a header only when the file is brand new.
 *
 *---------------------------------------------------------------*/

func (s *StatsLogger) write_row(now time.Time) {
	var fname, fmtErr = strftime.Format(STATS_FILE_PATTERN, now)
	if fmtErr != nil {
		return
	}

	if s.fp != nil && fname != s.open_fname {
		s.term()
	}

	if s.fp == nil {
		var full_path = filepath.Join(s.dir, fname)

		var _, statErr = os.Stat(full_path)
		var already_there = statErr == nil

		var f, openErr = os.OpenFile(full_path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
		if openErr != nil {
			s.logger.Warn("can't open stats file", "path", full_path, "err", openErr)
			return
		}
		s.fp = f
		s.open_fname = fname

		if !already_there {
			s.fp.WriteString("utime,periods,samples,timing_error_ns,correction_ns,ceases\n") //nolint:errcheck
		}
	}

	var e = s.engine
	var w = csv.NewWriter(s.fp)
	w.Write([]string{ //nolint:errcheck
		strconv.FormatInt(now.Unix(), 10),
		strconv.FormatUint(e.periods.Load(), 10),
		strconv.FormatUint(e.SampleCount(), 10),
		strconv.FormatInt(e.last_error_ns.Load(), 10),
		strconv.FormatInt(e.last_corr_ns.Load(), 10),
		strconv.FormatUint(e.ceases_sent.Load(), 10),
	})
	w.Flush()

	if w.Error() != nil {
		s.logger.Warn("stats write failed", "err", w.Error())
	}
}

func (s *StatsLogger) term() {
	if s.fp != nil {
		s.fp.Close()
		s.fp = nil
		s.open_fname = ""
	}
}
