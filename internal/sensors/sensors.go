// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors holds the hardware boundary of the monitor: the source
// interfaces the meters consume, the periph-backed drivers that implement
// them, and mock sources for running without hardware.
package sensors

import (
	"errors"

	"github.com/relabs-tech/focus_sensors/internal/imu"
)

var (
	// ErrPermissionDenied means the process may not open the device.
	ErrPermissionDenied = errors.New("sensors: permission denied")
	// ErrDeviceBusy means another process holds the device.
	ErrDeviceBusy = errors.New("sensors: device busy")
	// ErrUnavailable means the device is not present on this host.
	ErrUnavailable = errors.New("sensors: device unavailable")
)

// AccelSource provides acceleration readings in m/s².
type AccelSource interface {
	ReadAccel() (imu.Accel, error)
}

// LightSource provides raw ambient light readings. MaxRange is the largest
// value ReadLight can report, or 0 when the device does not know it.
type LightSource interface {
	ReadLight() (float64, error)
	MaxRange() float64
}

// MotionTrigger is a one-shot significant motion detector. After a call to
// RequestTrigger, fire runs at most once; the trigger must be requested
// again to receive the next event.
type MotionTrigger interface {
	RequestTrigger(fire func()) error
	CancelTrigger() error
}

// WakeOnMotion is implemented by accelerometers that can drive an
// interrupt line when they move.
type WakeOnMotion interface {
	EnableWakeOnMotion(thresholdMS2 float64) error
}

// AudioFormat describes a mono signed 16-bit PCM capture stream.
type AudioFormat struct {
	SampleRate int // Hz
	BufferSize int // samples per read
}

// AudioDevice is an opened capture stream. Read blocks until buf is filled
// or the stream fails. Close must not be called while a Read is running.
type AudioDevice interface {
	Start() error
	Read(buf []int16) (int, error)
	Close() error
}

// AudioOpener opens a capture device for the given format.
type AudioOpener func(AudioFormat) (AudioDevice, error)

// Permissions answers whether the process may capture from the microphone.
type Permissions interface {
	MicrophoneGranted() bool
}
