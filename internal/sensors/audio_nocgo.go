// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build !cgo

package sensors

import "fmt"

// CaptureOpener reports the microphone as unavailable in builds without cgo.
func CaptureOpener(name string) AudioOpener {
	return func(AudioFormat) (AudioDevice, error) {
		return nil, fmt.Errorf("audio: capture device %q needs a cgo build: %w", name, ErrUnavailable)
	}
}
