// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tick

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
)

// HostCounter emulates the hardware counter with the host monotonic clock.
// It is used on boards where the counter is not directly addressable.
type HostCounter struct {
	osc physic.Frequency

	mu       sync.Mutex
	prescale Prescale
	value    uint8
	loaded   time.Time
	overflow bool
}

// NewHostCounter returns a stopped counter fed by osc.
func NewHostCounter(osc physic.Frequency) *HostCounter {
	return &HostCounter{osc: osc, loaded: time.Now()}
}

// Select implements Counter.
func (h *HostCounter) Select(p Prescale) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sample()
	h.prescale = p
	h.loaded = time.Now()
}

// Load implements Counter.
func (h *HostCounter) Load(v uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value = v
	h.loaded = time.Now()
}

// ClearOverflow implements Counter.
func (h *HostCounter) ClearOverflow() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overflow = false
}

// Overflowed implements Counter.
func (h *HostCounter) Overflowed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sample()
	return h.overflow
}

// sample folds the counts elapsed since the last load into value.
func (h *HostCounter) sample() {
	div := h.prescale.Divisor()
	if div == 0 {
		return
	}
	now := time.Now()
	hz := uint64(h.osc / physic.Hertz)
	counts := uint64(now.Sub(h.loaded)) * hz / uint64(div) / uint64(time.Second)
	if counts == 0 {
		return
	}
	if uint64(h.value)+counts > 0xff {
		h.overflow = true
	}
	h.value = uint8(uint64(h.value) + counts)
	// Keep the fractional count by advancing loaded by whole counts only.
	h.loaded = h.loaded.Add(time.Duration(counts * uint64(div) * uint64(time.Second) / hz))
}

var _ Counter = &HostCounter{}
