// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "math"

// StandardGravity in m/s².
const StandardGravity = 9.81

// Accel represents a single accelerometer sample in m/s².
type Accel struct {
	X float64 `json:"ax"`
	Y float64 `json:"ay"`
	Z float64 `json:"az"`
}

// Magnitude returns the length of the acceleration vector.
func (a Accel) Magnitude() float64 {
	return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
}

// CountsToMS2 converts a raw MPU9250 accelerometer reading to m/s².
// rangeIdx is the configured full scale: 0=±2g, 1=±4g, 2=±8g, 3=±16g.
func CountsToMS2(raw int16, rangeIdx byte) float64 {
	lsbPerG := 16384.0 / float64(int(1)<<rangeIdx)
	return float64(raw) / lsbPerG * StandardGravity
}
