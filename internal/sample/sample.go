// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sample

import "time"

// Sample is one periodic snapshot of all sensors during a session.
// It is built once per sampling tick and never modified afterwards.
type Sample struct {
	Timestamp time.Time `json:"ts"`
	SessionID int64     `json:"session_id"`
	Seq       uint64    `json:"seq"` // 1-based tick number within the session

	NoiseLevel     float64 `json:"noise_level"`     // RMS loudness
	LightLevel     float32 `json:"light_level"`     // 0-100
	FaceUp         bool    `json:"face_up"`         // orientation at the tick
	MotionDetected bool    `json:"motion_detected"` // any motion since the previous tick
}
