// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sampling

import (
	"sync/atomic"

	"github.com/relabs-tech/focus_sensors/internal/sensors"
)

// Slots holds the latest value of each signal between ticks.
//
// Light and FaceUp are written only by the light listener. Motion is set
// only by the motion listener and cleared only by the sampling tick.
type Slots struct {
	light  sensors.Float32
	faceUp atomic.Bool
	motion atomic.Bool
}

// SetLight stores a light meter update. It has the light.Listener signature.
func (s *Slots) SetLight(level float32, faceUp bool) {
	s.light.Store(level)
	s.faceUp.Store(faceUp)
}

// MarkMotion records that motion happened during the current interval.
func (s *Slots) MarkMotion() {
	s.motion.Store(true)
}

// Light returns the last light level.
func (s *Slots) Light() float32 { return s.light.Load() }

// FaceUp returns the last orientation.
func (s *Slots) FaceUp() bool { return s.faceUp.Load() }

// consumeMotion returns the motion flag and clears it in one step.
func (s *Slots) consumeMotion() bool {
	return s.motion.Swap(false)
}
