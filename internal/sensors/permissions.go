// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "golang.org/x/sys/unix"

// DefaultSoundDevicePath is the directory holding the ALSA device nodes.
const DefaultSoundDevicePath = "/dev/snd"

// DevicePermissions grants microphone capture when the process can open the
// sound device nodes (on most distributions: membership of the audio group).
type DevicePermissions struct {
	Path string
}

// MicrophoneGranted reports whether the ALSA device path is readable.
func (p DevicePermissions) MicrophoneGranted() bool {
	path := p.Path
	if path == "" {
		path = DefaultSoundDevicePath
	}
	return unix.Access(path, unix.R_OK) == nil
}

// StaticPermissions answers with a fixed value. Used with mock sensors.
type StaticPermissions bool

func (p StaticPermissions) MicrophoneGranted() bool { return bool(p) }
