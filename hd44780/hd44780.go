// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780 over its
// 8-bit parallel bus with busy flag read-back.
//
// Every transaction is preceded by polling the busy flag until the controller
// reports ready. The poll has no timeout: a controller that never clears its
// busy flag blocks the caller forever.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

const (
	packageName = "hd44780"

	// LineStride is the number of DDRAM cells per line as seen by the
	// address counter, regardless of how many are visible.
	LineStride = 40

	busyFlag byte = 0x80

	cmdClear      byte = 0x01
	cmdHome       byte = 0x02
	cmdEntryMode  byte = 0x04
	cmdDisplay    byte = 0x08
	cmdShift      byte = 0x10
	cmdFunction   byte = 0x20
	cmdSetDDRAM   byte = 0x80
	cmdCursorNext byte = cmdShift | shiftRight

	entryIncrement byte = 0x02
	entryShift     byte = 0x01

	displayOn byte = 0x04
	cursorOn  byte = 0x02
	blinkOn   byte = 0x01

	shiftDisplay byte = 0x08
	shiftRight   byte = 0x04

	function8Bit  byte = 0x10
	function2Line byte = 0x08
	functionFont  byte = 0x04

	// resetPattern is written twice, unchecked, to force 8-bit mode.
	resetPattern = cmdFunction | function8Bit
)

var (
	// ErrNotImplemented is returned for operations the controller cannot do.
	ErrNotImplemented = fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)

	errNoBacklight = fmt.Errorf("%s: no backlight: %w", packageName, display.ErrNotImplemented)
)

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// Clock provides the delays used by the power-on sequence and the bus.
type Clock interface {
	Pulser
	// WaitMS blocks for n milliseconds.
	WaitMS(n uint32)
}

// Opts describes the panel wired to the controller.
type Opts struct {
	Rows int
	Cols int
	// Backlight is optional.
	Backlight display.DisplayBacklight
}

// DefaultOpts is a 2 line, 16 column panel.
var DefaultOpts = Opts{Rows: 2, Cols: 16}

// Dev is an HD44780 driven over a Bus.
//
// Implements periph.io/x/conn/v3/display.TextDisplay and
// display.DisplayBacklight.
type Dev struct {
	bus  *Bus
	clk  Clock
	rows int
	cols int
	bl   display.DisplayBacklight

	on        bool
	cursor    bool
	blink     bool
	autoShift bool
}

// New returns an initialized display. If opts is nil, DefaultOpts is used.
func New(bus *Bus, clk Clock, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Rows < 1 || opts.Rows > 2 || opts.Cols < 1 || opts.Cols > LineStride {
		return nil, fmt.Errorf("%s: unsupported geometry %dx%d", packageName, opts.Rows, opts.Cols)
	}
	dev := &Dev{
		bus:  bus,
		clk:  clk,
		rows: opts.Rows,
		cols: opts.Cols,
		bl:   opts.Backlight,
	}
	if err := dev.Init(); err != nil {
		return nil, err
	}
	return dev, nil
}

// Init runs the power-on sequence from the datasheet. The two reset writes
// happen before the busy flag is valid and are timed by fixed delays; every
// later write polls the busy flag.
//
// Ends with an 8-bit, 2 line interface, display on, cursor off, address
// auto-increment and a cleared screen.
func (dev *Dev) Init() error {
	dev.clk.WaitMS(16)
	if err := dev.bus.Write(Instruction, resetPattern); err != nil {
		return err
	}
	dev.clk.WaitMS(5)
	if err := dev.bus.Write(Instruction, resetPattern); err != nil {
		return err
	}
	dev.clk.WaitMS(1)
	for _, cmd := range []byte{
		cmdFunction | function8Bit | function2Line | functionFont,
		cmdDisplay | displayOn,
		cmdEntryMode | entryIncrement,
		cmdClear,
	} {
		if err := dev.command(cmd); err != nil {
			return err
		}
	}
	dev.on, dev.cursor, dev.blink, dev.autoShift = true, false, false, false
	return nil
}

// WaitReady reads the status register until the busy flag is clear. It
// blocks without bound.
func (dev *Dev) WaitReady() error {
	for {
		s, err := dev.bus.Read(Instruction)
		if err != nil {
			return err
		}
		if s&busyFlag == 0 {
			return nil
		}
	}
}

func (dev *Dev) write(reg Register, v byte) error {
	if err := dev.WaitReady(); err != nil {
		return err
	}
	return dev.bus.Write(reg, v)
}

func (dev *Dev) command(cmd byte) error {
	return dev.write(Instruction, cmd)
}

// Address returns the linear DDRAM address of the zero based cell (row, col).
func Address(row, col uint8) uint8 {
	return row*LineStride + col
}

// SetCursor moves the address counter to the zero based cell (row, col).
//
// The counter is returned home and then stepped one cell at a time, so the
// cost is one busy-checked transaction per cell of Address(row, col).
func (dev *Dev) SetCursor(row, col uint8) error {
	if int(row) >= dev.rows || col >= LineStride {
		return fmt.Errorf("%s: SetCursor(%d, %d) out of range", packageName, row, col)
	}
	if err := dev.command(cmdHome); err != nil {
		return err
	}
	for n := Address(row, col); n > 0; n-- {
		if err := dev.command(cmdCursorNext); err != nil {
			return err
		}
	}
	return nil
}

// PutChar writes c at the current address. The controller advances the
// address.
func (dev *Dev) PutChar(c byte) error {
	return dev.write(Data, c)
}

// PutString writes s up to its end or its first NUL byte.
func (dev *Dev) PutString(s string) error {
	for i := 0; i < len(s) && s[i] != 0; i++ {
		if err := dev.PutChar(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// AutoScroll shifts the display instead of the cursor on every write when
// enabled.
func (dev *Dev) AutoScroll(enabled bool) error {
	mode := cmdEntryMode | entryIncrement
	if enabled {
		mode |= entryShift
	}
	if err := dev.command(mode); err != nil {
		return err
	}
	dev.autoShift = enabled
	return nil
}

// Clear blanks the screen and returns the cursor home. The controller takes
// longer for this than for other commands; the busy flag covers it.
func (dev *Dev) Clear() error {
	return dev.command(cmdClear)
}

// Cols returns the number of visible columns.
func (dev *Dev) Cols() int {
	return dev.cols
}

// Rows returns the number of lines.
func (dev *Dev) Rows() int {
	return dev.rows
}

// MinCol returns the first column for MoveTo.
func (dev *Dev) MinCol() int {
	return 1
}

// MinRow returns the first row for MoveTo.
func (dev *Dev) MinRow() int {
	return 1
}

// Cursor sets the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (dev *Dev) Cursor(modes ...display.CursorMode) error {
	cursor, blink := dev.cursor, dev.blink
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			cursor, blink = false, false
		case display.CursorUnderline:
			cursor = true
		case display.CursorBlink, display.CursorBlock:
			blink = true
		default:
			return fmt.Errorf("%s: unexpected cursor: %d", packageName, mode)
		}
	}
	if err := dev.command(dev.displayControl(dev.on, cursor, blink)); err != nil {
		return err
	}
	dev.cursor, dev.blink = cursor, blink
	return nil
}

func (dev *Dev) displayControl(on, cursor, blink bool) byte {
	val := cmdDisplay
	if on {
		val |= displayOn
	}
	if cursor {
		val |= cursorOn
	}
	if blink {
		val |= blinkOn
	}
	return val
}

// Display turns the display on or off. DDRAM is retained while off.
func (dev *Dev) Display(on bool) error {
	if err := dev.command(dev.displayControl(on, dev.cursor, dev.blink)); err != nil {
		return err
	}
	dev.on = on
	return nil
}

// Home moves the cursor to (MinRow(), MinCol()).
func (dev *Dev) Home() error {
	return dev.command(cmdHome)
}

// Move moves the cursor one cell forward or backward.
func (dev *Dev) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Forward:
		return dev.command(cmdShift | shiftRight)
	case display.Backward:
		return dev.command(cmdShift)
	default:
		return ErrNotImplemented
	}
}

// MoveTo moves the cursor to the one based position (row, col).
func (dev *Dev) MoveTo(row, col int) error {
	if row < dev.MinRow() || row > dev.rows || col < dev.MinCol() || col > dev.cols {
		return fmt.Errorf("%s: MoveTo(%d, %d) value out of range", packageName, row, col)
	}
	return dev.SetCursor(uint8(row-1), uint8(col-1))
}

// Write writes p as character data at the current address.
func (dev *Dev) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if err = dev.PutChar(c); err != nil {
			return
		}
		n++
	}
	return
}

// WriteString writes text as character data at the current address.
func (dev *Dev) WriteString(text string) (int, error) {
	return dev.Write([]byte(text))
}

// Backlight turns the backlight on or off. It returns ErrNotImplemented when
// the panel has no backlight control.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	if dev.bl == nil {
		return errNoBacklight
	}
	return wrap(dev.bl.Backlight(intensity))
}

// Halt clears the display, turns the backlight off and the display off.
func (dev *Dev) Halt() error {
	err := dev.Clear()
	if errBL := dev.Backlight(0); err == nil && !errors.Is(errBL, display.ErrNotImplemented) {
		err = errBL
	}
	if errOff := dev.Display(false); err == nil {
		err = errOff
	}
	return err
}

func (dev *Dev) String() string {
	return fmt.Sprintf("HD44780{%d rows, %d cols}", dev.rows, dev.cols)
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
