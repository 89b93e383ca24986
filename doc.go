// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package voltmeter is a single channel bench voltmeter built from a 10 bit
// converter, a 4x4 keypad and a 2x16 HD44780 character LCD.
//
// The drivers live in the subpackages: tick for the millisecond timer,
// hd44780 for the display, keypad for the matrix, adc and mcp3008 for the
// converter. Package voltmeter/voltmeter is the acquisition loop and package
// board wires everything from a YAML description. cmd/voltmeter runs it on
// hardware or in the terminal.
package voltmeter
