// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package voltmeter

// Stats accumulates converter codes since the last reset.
//
// Count is advanced by CountedMean rather than by Add: the live display
// counts a sample when it renders its mean.
type Stats struct {
	Min   uint16
	Max   uint16
	Sum   uint64
	Count uint32

	fullScale uint16
}

// NewStats returns empty statistics for a converter whose largest code is
// fullScale.
func NewStats(fullScale uint16) Stats {
	s := Stats{fullScale: fullScale}
	s.Reset()
	return s
}

// Reset discards every sample. Min starts at full scale so that any sample
// lowers it.
func (s *Stats) Reset() {
	s.Min = s.fullScale
	s.Max = 0
	s.Sum = 0
	s.Count = 0
}

// Add folds code into the running sum, minimum and maximum.
func (s *Stats) Add(code uint16) {
	s.Sum += uint64(code)
	if code > s.Max {
		s.Max = code
	}
	if code < s.Min {
		s.Min = code
	}
}

// CountedMean advances Count and returns the integer mean of Sum over the new
// Count. Advancing first means the first mean divides by one.
func (s *Stats) CountedMean() uint16 {
	s.Count++
	return uint16(s.Sum / uint64(s.Count))
}
