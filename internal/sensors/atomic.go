// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"sync/atomic"
)

// Float64 is a float64 cell safe for one writer and many readers.
type Float64 struct {
	bits atomic.Uint64
}

func (f *Float64) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *Float64) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Float32 is a float32 cell safe for one writer and many readers.
type Float32 struct {
	bits atomic.Uint32
}

func (f *Float32) Load() float32   { return math.Float32frombits(f.bits.Load()) }
func (f *Float32) Store(v float32) { f.bits.Store(math.Float32bits(v)) }
