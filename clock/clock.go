// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package clock is the single place every subsystem reads wall-clock time
// from, following the teacher's idiom of always pulling the time axis off
// the accessible block context rather than the host's system clock.
package clock

import "github.com/luxfi/launchpad/contract"

// Clock reads the current time in seconds since the Unix epoch, as seen by
// the block currently executing.
type Clock interface {
	Now() uint64
}

// FromBlockContext adapts a contract.BlockContext into a Clock.
type FromBlockContext struct {
	BlockContext contract.BlockContext
}

// Now returns the current block's timestamp.
func (c FromBlockContext) Now() uint64 {
	return c.BlockContext.Time()
}

// Fixed is a test double returning a constant time; its zero value reads
// as time 0.
type Fixed uint64

// Now returns the fixed timestamp.
func (f Fixed) Now() uint64 {
	return uint64(f)
}
