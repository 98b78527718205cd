// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// captureQueueDepth is how many backend periods may wait for the reader.
	captureQueueDepth = 8
	// capturePrimeTimeout bounds the wait for the first period after Start.
	capturePrimeTimeout = 2 * time.Second
	// captureReadTimeout bounds a single Read when the backend goes quiet.
	captureReadTimeout = time.Second
)

var (
	errCaptureClosed  = errors.New("audio: capture closed")
	errCaptureStalled = errors.New("audio: no data from capture device")
)

// pcmStream hands S16_LE periods pushed by an audio backend callback to a
// blocking reader.
type pcmStream struct {
	frames      chan []byte
	closed      chan struct{}
	readTimeout time.Duration

	once sync.Once
	mu   sync.Mutex
	err  error

	pending []byte // reader side only
}

func newPCMStream(depth int, readTimeout time.Duration) *pcmStream {
	return &pcmStream{
		frames:      make(chan []byte, depth),
		closed:      make(chan struct{}),
		readTimeout: readTimeout,
	}
}

// push copies one period from the backend. The period is dropped when the
// reader is behind or the stream has ended.
func (s *pcmStream) push(p []byte) {
	if len(p) == 0 {
		return
	}
	select {
	case <-s.closed:
		return
	default:
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case s.frames <- buf:
	default:
	}
}

// fail ends the stream. Only the first error is kept.
func (s *pcmStream) fail(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.closed)
	})
}

func (s *pcmStream) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// prime waits for the first period and keeps it for the next Read. A
// stream that ends or stays silent is reported as an initialization error.
func (s *pcmStream) prime(timeout time.Duration) error {
	select {
	case p := <-s.frames:
		s.pending = p
		return nil
	case <-s.closed:
		return s.failure()
	case <-time.After(timeout):
		return fmt.Errorf("audio: no data within %s: %w", timeout, ErrUnavailable)
	}
}

func (s *pcmStream) next() ([]byte, error) {
	select {
	case p := <-s.frames:
		return p, nil
	default:
	}
	select {
	case p := <-s.frames:
		return p, nil
	case <-s.closed:
		return nil, s.failure()
	case <-time.After(s.readTimeout):
		return nil, errCaptureStalled
	}
}

// Read fills buf with little-endian samples, spanning periods as needed.
// A partially filled buffer is returned without error when the stream ends.
func (s *pcmStream) Read(buf []int16) (int, error) {
	n := 0
	for n < len(buf) {
		if len(s.pending) < 2 {
			p, err := s.next()
			if err != nil {
				if n > 0 {
					return n, nil
				}
				return 0, err
			}
			s.pending = p
			continue
		}
		k := min(len(buf)-n, len(s.pending)/2)
		for i := 0; i < k; i++ {
			buf[n+i] = int16(binary.LittleEndian.Uint16(s.pending[2*i:]))
		}
		n += k
		s.pending = s.pending[2*k:]
	}
	return n, nil
}

// classifyCaptureError maps a backend failure onto the sensors sentinels.
func classifyCaptureError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "busy"):
		return fmt.Errorf("audio: %w: %w", ErrDeviceBusy, err)
	case strings.Contains(msg, "access denied"), strings.Contains(msg, "permission denied"):
		return fmt.Errorf("audio: %w: %w", ErrPermissionDenied, err)
	case strings.Contains(msg, "no device"), strings.Contains(msg, "does not exist"), strings.Contains(msg, "no backend"):
		return fmt.Errorf("audio: %w: %w", ErrUnavailable, err)
	default:
		return fmt.Errorf("audio: %w", err)
	}
}
