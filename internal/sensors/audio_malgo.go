// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build cgo

package sensors

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// captureDevice records mono S16 PCM through miniaudio.
type captureDevice struct {
	ctx    *malgo.AllocatedContext
	dev    *malgo.Device
	stream *pcmStream

	closing atomic.Bool
}

// CaptureOpener returns an AudioOpener for the named capture device. An
// empty name or "default" selects the backend's default input. Any other
// name matches the first capture device whose name contains it.
func CaptureOpener(name string) AudioOpener {
	return func(f AudioFormat) (AudioDevice, error) {
		if f.SampleRate <= 0 {
			return nil, fmt.Errorf("audio: invalid sample rate %d", f.SampleRate)
		}
		if f.BufferSize <= 0 {
			return nil, fmt.Errorf("audio: invalid buffer size %d", f.BufferSize)
		}

		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
			log.Printf("audio: backend: %s", strings.TrimSpace(msg))
		})
		if err != nil {
			return nil, fmt.Errorf("init context: %w", classifyCaptureError(err))
		}

		cfg := malgo.DefaultDeviceConfig(malgo.Capture)
		cfg.Capture.Format = malgo.FormatS16
		cfg.Capture.Channels = 1
		cfg.SampleRate = uint32(f.SampleRate)
		cfg.PeriodSizeInFrames = uint32(f.BufferSize)
		cfg.Alsa.NoMMap = 1

		var infos []malgo.DeviceInfo
		if name != "" && name != "default" {
			infos, err = ctx.Devices(malgo.Capture)
			if err != nil {
				freeContext(ctx)
				return nil, fmt.Errorf("list capture devices: %w", classifyCaptureError(err))
			}
			i := indexOfDevice(infos, name)
			if i < 0 {
				freeContext(ctx)
				return nil, fmt.Errorf("audio: capture device %q not found: %w", name, ErrUnavailable)
			}
			cfg.Capture.DeviceID = infos[i].ID.Pointer()
		}

		d := &captureDevice{ctx: ctx, stream: newPCMStream(captureQueueDepth, captureReadTimeout)}
		d.dev, err = malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{
			Data: func(_, input []byte, _ uint32) {
				d.stream.push(input)
			},
			Stop: func() {
				if !d.closing.Load() {
					d.stream.fail(fmt.Errorf("audio: capture ended: %w", io.EOF))
				}
			},
		})
		if err != nil {
			freeContext(ctx)
			return nil, fmt.Errorf("init device: %w", classifyCaptureError(err))
		}
		return d, nil
	}
}

func indexOfDevice(infos []malgo.DeviceInfo, name string) int {
	for i := range infos {
		if strings.Contains(infos[i].Name(), name) {
			return i
		}
	}
	return -1
}

func freeContext(ctx *malgo.AllocatedContext) {
	if err := ctx.Uninit(); err != nil {
		log.Printf("audio: uninit context: %v", err)
	}
	ctx.Free()
}

// Start begins capture and waits for the first period, so a device that
// opens but never delivers data fails here rather than in the read loop.
func (d *captureDevice) Start() error {
	if err := d.dev.Start(); err != nil {
		return fmt.Errorf("start: %w", classifyCaptureError(err))
	}
	return d.stream.prime(capturePrimeTimeout)
}

func (d *captureDevice) Read(buf []int16) (int, error) {
	return d.stream.Read(buf)
}

// Close stops capture and releases the device and its context.
func (d *captureDevice) Close() error {
	if d.closing.Swap(true) {
		return nil
	}
	d.dev.Uninit()
	d.stream.fail(errCaptureClosed)
	freeContext(d.ctx)
	return nil
}
