// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// voltmeter samples one converter channel and shows the instantaneous value
// with its running minimum, maximum and mean on a 2x16 character LCD.
//
// With -sim the board is simulated and the panel is drawn in the terminal;
// press Enter to push the toggle key.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/voltmeter/adc"
	"github.com/GermanBionicSystems/voltmeter/board"
	"github.com/GermanBionicSystems/voltmeter/keypad"
	"github.com/GermanBionicSystems/voltmeter/screen"
	"github.com/GermanBionicSystems/voltmeter/voltmeter"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "voltmeter: %s.\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	config := flag.String("config", "voltmeter.yaml", "board description")
	sim := flag.Bool("sim", false, "simulate the board and draw the panel in the terminal")
	verbose := flag.Bool("v", false, "log every reading")
	n := flag.Int("n", 0, "stop after this many readings; 0 runs until interrupted")
	period := flag.Duration("period", 10*time.Second, "period of the simulated input")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := board.Load(*config)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cfg.MeterOpts()
	opts.Log = log
	var b *board.Board
	if *sim {
		s, term, err := simulate(ctx, cfg, opts, *period, log)
		if err != nil {
			return err
		}
		defer term.Halt()
		b = s.Board
	} else {
		if b, err = board.Open(cfg, log); err != nil {
			return err
		}
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.WithError(err).Warn("closing board")
		}
	}()

	m := b.Meter(opts)
	if *n == 0 {
		if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
	for i := 0; i < *n && ctx.Err() == nil; i++ {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// simulate builds a simulated board fed with a sine wave spanning the full
// converter range. Every line read on stdin pushes the toggle key for exactly
// one scan.
func simulate(ctx context.Context, cfg *board.Config, opts *voltmeter.Opts, period time.Duration, log logrus.FieldLogger) (*board.Sim, *screen.Dev, error) {
	start := time.Now()
	source := func() uint16 {
		phase := 2 * math.Pi * float64(time.Since(start)) / float64(period)
		return uint16(math.Round(float64(adc.MaxCode) * (1 + math.Sin(phase)) / 2))
	}
	s, err := board.Simulate(cfg, &board.SimOpts{BusyReads: 2, ConversionPolls: 3, Source: source}, log)
	if err != nil {
		return nil, nil, err
	}

	presses := make(chan struct{}, 1)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case presses <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	key := keypad.Key(cfg.Meter.ToggleKey)
	term := screen.New(&screen.Opts{Cols: cfg.Display.Cols})
	opts.Observer = func(r voltmeter.Reading) {
		if err := term.Show(s.LCD.Lines(cfg.Display.Cols)); err != nil {
			log.WithError(err).Warn("drawing panel")
		}
		s.Keys.ReleaseAll()
		select {
		case <-presses:
			s.Keys.Press(key.Row(), key.Col())
		default:
		}
	}
	return s, term, nil
}
