// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sampling turns the latest sensor values into one sample per
// fixed interval while a session runs.
package sampling

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/focus_sensors/internal/metrics"
	"github.com/relabs-tech/focus_sensors/internal/sample"
)

// DefaultInterval is the sampling period.
const DefaultInterval = 5 * time.Second

// ErrRunning is returned by Start when the loop already runs.
var ErrRunning = errors.New("sampling loop already running")

// Enqueuer accepts samples without blocking. persist.Writer implements it.
type Enqueuer interface {
	Enqueue(s sample.Sample) bool
}

// Loop emits a sample every interval from the slots, the amplitude
// function and the motion flag, and hands it to an Enqueuer.
type Loop struct {
	interval  time.Duration
	slots     *Slots
	amplitude func() float64
	out       Enqueuer
	metrics   *metrics.Metrics
	now       func() time.Time

	active    atomic.Bool
	sessionID atomic.Int64
	seq       atomic.Uint64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a stopped loop. amplitude may be nil when there is no microphone.
func New(interval time.Duration, slots *Slots, amplitude func() float64, out Enqueuer, m *metrics.Metrics) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if amplitude == nil {
		amplitude = func() float64 { return 0 }
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Loop{
		interval:  interval,
		slots:     slots,
		amplitude: amplitude,
		out:       out,
		metrics:   m,
		now:       time.Now,
	}
}

// Start schedules the first tick one interval from now. The motion flag
// is cleared so the first sample only reflects motion in its own interval.
func (l *Loop) Start(sessionID int64) error {
	if sessionID <= 0 {
		return fmt.Errorf("sampling: invalid session id %d", sessionID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		return ErrRunning
	}

	l.slots.consumeMotion()
	l.sessionID.Store(sessionID)
	l.seq.Store(0)
	l.active.Store(true)

	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(l.stop, l.done)

	log.Printf("sampling: session %d, one sample every %v", sessionID, l.interval)
	return nil
}

// Stop cancels the next tick and waits for a running one to finish. No
// sample is handed off after Stop returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop == nil {
		return
	}
	l.active.Store(false)
	close(l.stop)
	<-l.done
	l.stop, l.done = nil, nil
}

// Running reports whether a session is being sampled.
func (l *Loop) Running() bool {
	return l.active.Load()
}

func (l *Loop) run(stop, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			l.tick()
			if !l.active.Load() {
				return
			}
			timer.Reset(l.interval)
		}
	}
}

// tick assembles and hands off one sample.
func (l *Loop) tick() {
	if !l.active.Load() {
		return
	}

	s := sample.Sample{
		Timestamp:      l.now(),
		SessionID:      l.sessionID.Load(),
		Seq:            l.seq.Add(1),
		NoiseLevel:     l.amplitude(),
		LightLevel:     l.slots.Light(),
		FaceUp:         l.slots.FaceUp(),
		MotionDetected: l.slots.consumeMotion(),
	}

	l.metrics.SamplesEmitted.Inc()
	l.metrics.Amplitude.Set(s.NoiseLevel)
	l.metrics.LightLevel.Set(float64(s.LightLevel))

	if !l.out.Enqueue(s) {
		log.Printf("sampling: sample %d of session %d not queued", s.Seq, s.SessionID)
	}
}
