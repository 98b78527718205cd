// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session owns the sensors of one monitoring session at a time and
// drives their lifecycle together.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/focus_sensors/internal/audio"
	"github.com/relabs-tech/focus_sensors/internal/light"
	"github.com/relabs-tech/focus_sensors/internal/metrics"
	"github.com/relabs-tech/focus_sensors/internal/motion"
	"github.com/relabs-tech/focus_sensors/internal/orientation"
	"github.com/relabs-tech/focus_sensors/internal/sample"
	"github.com/relabs-tech/focus_sensors/internal/sampling"
	"github.com/relabs-tech/focus_sensors/internal/sensors"
)

// DefaultEventBuffer is the capacity of the event channel.
const DefaultEventBuffer = 32

// Hardware lists the sources available on this host. Any field may be nil:
// a missing sensor degrades its component instead of failing the session.
type Hardware struct {
	Accel       sensors.AccelSource
	Light       sensors.LightSource
	Motion      sensors.MotionTrigger
	Audio       sensors.AudioOpener
	Permissions sensors.Permissions
}

// Foreground keeps the process in monitoring mode while a session runs.
// Acquire is called before any sensor starts and Release after they stop,
// on every exit path.
type Foreground interface {
	Acquire() error
	Release()
}

type nopForeground struct{}

func (nopForeground) Acquire() error { return nil }
func (nopForeground) Release()       {}

type discardQueue struct{}

func (discardQueue) Enqueue(sample.Sample) bool  { return true }
func (discardQueue) Close(context.Context) error { return nil }

// Queue is the persistence boundary. persist.Writer implements it.
type Queue interface {
	Enqueue(s sample.Sample) bool
	Close(ctx context.Context) error
}

// Options tune the orchestrator. Zero values select each component's default.
type Options struct {
	SampleInterval  time.Duration
	LightInterval   time.Duration
	FaceUpInterval  time.Duration
	MotionInterval  time.Duration
	FaceUpThreshold float64
	MotionThreshold float64
	AudioFormat     sensors.AudioFormat
	Foreground      Foreground
	Metrics         *metrics.Metrics
	EventBuffer     int
}

// components are the per-session sensor instances, created by StartSession
// and dropped by StopSession.
type components struct {
	id         int64
	foreground bool
	audio      *audio.Meter
	light      *light.Meter
	motion     *motion.Detector
	loop       *sampling.Loop
}

// Orchestrator starts and stops the sensors, the sampling loop and the
// foreground resource of one session at a time.
type Orchestrator struct {
	hw      Hardware
	opts    Options
	queue   Queue
	metrics *metrics.Metrics

	mu      sync.Mutex // serializes StartSession and StopSession
	state   atomic.Int32
	current atomic.Pointer[components]
	closed  atomic.Bool

	eventsMu     sync.Mutex
	events       chan Event
	eventsClosed bool
}

// New creates an idle orchestrator that hands samples to queue. The
// orchestrator owns queue and closes it in Shutdown. A nil queue discards samples.
func New(hw Hardware, queue Queue, opts Options) *Orchestrator {
	if queue == nil {
		queue = discardQueue{}
	}
	if opts.Foreground == nil {
		opts.Foreground = nopForeground{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.AudioFormat.SampleRate == 0 {
		opts.AudioFormat.SampleRate = audio.DefaultSampleRate
	}
	if opts.AudioFormat.BufferSize == 0 {
		opts.AudioFormat.BufferSize = audio.DefaultBufferSize
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	return &Orchestrator{
		hw:      hw,
		opts:    opts,
		queue:   queue,
		metrics: opts.Metrics,
		events:  make(chan Event, opts.EventBuffer),
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// SessionID returns the running session, or 0 when idle.
func (o *Orchestrator) SessionID() int64 {
	if c := o.current.Load(); c != nil {
		return c.id
	}
	return 0
}

// Events delivers lifecycle and failure events. The channel is closed by
// Shutdown. Events are dropped when nobody drains it.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// CurrentAmplitude returns the latest microphone loudness, or 0 when no
// session records audio.
func (o *Orchestrator) CurrentAmplitude() float64 {
	c := o.current.Load()
	if c == nil || c.audio == nil {
		return 0
	}
	return c.audio.CurrentAmplitude()
}

// LightSensorAvailable reports whether the host has an ambient light sensor.
func (o *Orchestrator) LightSensorAvailable() bool {
	return o.hw.Light != nil
}

// MotionSensorAvailable reports whether the host has a significant motion
// trigger. Without one, motion is detected from the accelerometer.
func (o *Orchestrator) MotionSensorAvailable() bool {
	return o.hw.Motion != nil
}

// MotionFallback reports whether sessions use the accelerometer fallback.
func (o *Orchestrator) MotionFallback() bool {
	return o.hw.Motion == nil
}

// StartSession starts every sensor and the sampling loop for id. On any
// failure everything started so far is stopped again and a *StartError is
// returned; the orchestrator is then Idle.
func (o *Orchestrator) StartSession(id int64) error {
	if id <= 0 {
		return o.reject(id, &StartError{Reason: ReasonInvalidSession, Err: fmt.Errorf("id %d", id)})
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed.Load() {
		return o.reject(id, &StartError{Reason: ReasonStartup, Err: ErrShutdown})
	}
	if st := o.State(); st != Idle {
		running := int64(0)
		if c := o.current.Load(); c != nil {
			running = c.id
		}
		return o.reject(id, &StartError{Reason: ReasonAlreadyRunning, Err: fmt.Errorf("session %d is %s", running, st)})
	}

	o.state.Store(int32(Starting))
	c, err := o.startComponents(id)
	if err != nil {
		o.state.Store(int32(Idle))
		return o.reject(id, err)
	}

	o.current.Store(c)
	o.state.Store(int32(Running))
	o.metrics.SessionStarts.WithLabelValues("ok").Inc()
	o.metrics.SessionActive.Set(1)
	o.emit(Event{Kind: EventSessionStarted, SessionID: id})
	log.Printf("session: %d started (light=%v motion=%s audio=%v)",
		id, c.light.IsAvailable(), motionMode(c.motion), c.audio != nil)
	return nil
}

// StopSession stops the sampling loop, then the sensors, then releases the
// foreground resource. It does nothing when no session runs.
func (o *Orchestrator) StopSession() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.State() != Running {
		return
	}
	o.state.Store(int32(Stopping))
	c := o.current.Swap(nil)
	o.teardown(c)
	o.state.Store(int32(Idle))

	o.metrics.SessionActive.Set(0)
	o.emit(Event{Kind: EventSessionStopped, SessionID: c.id})
	log.Printf("session: %d stopped", c.id)
}

// Shutdown stops the running session and closes the persistence queue,
// both bounded by ctx. When ctx ends first the queue's in-flight write is
// cancelled and ctx.Err() is returned; a stuck sensor stop is abandoned.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	if o.closed.Swap(true) {
		return nil
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		o.StopSession()
	}()

	var errs []error
	select {
	case <-stopped:
	case <-ctx.Done():
		log.Printf("session: sensors did not stop in time: %v", ctx.Err())
		errs = append(errs, fmt.Errorf("stop session: %w", ctx.Err()))
	}

	if err := o.queue.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close queue: %w", err))
	}

	o.eventsMu.Lock()
	o.eventsClosed = true
	close(o.events)
	o.eventsMu.Unlock()

	return errors.Join(errs...)
}

// startComponents brings the session up in order: foreground, audio,
// light (with orientation), motion, sampling. A failure or panic at any
// step tears down what was started.
func (o *Orchestrator) startComponents(id int64) (c *components, err error) {
	c = &components{id: id}
	defer func() {
		if r := recover(); r != nil {
			err = &StartError{Reason: ReasonStartup, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			o.teardown(c)
			c = nil
		}
	}()

	if ferr := o.opts.Foreground.Acquire(); ferr != nil {
		return c, &StartError{Reason: ReasonStartup, Err: fmt.Errorf("foreground: %w", ferr)}
	}
	c.foreground = true

	if o.hw.Audio != nil {
		if o.hw.Permissions != nil && !o.hw.Permissions.MicrophoneGranted() {
			return c, &StartError{Reason: ReasonPermissionMissing, Err: sensors.ErrPermissionDenied}
		}
		c.audio = audio.NewMeter(o.hw.Audio, o.opts.AudioFormat, o.audioFailed(id))
		if aerr := c.audio.StartRecording(); aerr != nil {
			if errors.Is(aerr, sensors.ErrPermissionDenied) {
				return c, &StartError{Reason: ReasonPermissionMissing, Err: aerr}
			}
			return c, &StartError{Reason: ReasonDeviceInit, Err: aerr}
		}
	} else {
		log.Printf("session: no microphone, noise level will read 0")
	}

	slots := &sampling.Slots{}

	orient := orientation.NewMonitor(o.hw.Accel, orientation.Options{
		Interval:  o.opts.FaceUpInterval,
		Threshold: o.opts.FaceUpThreshold,
	})
	c.light = light.NewMeter(o.hw.Light, orient, o.opts.LightInterval)
	c.light.Start(slots.SetLight)

	c.motion = motion.NewDetector(o.hw.Motion, o.hw.Accel, motion.Options{
		Interval:  o.opts.MotionInterval,
		Threshold: o.opts.MotionThreshold,
	})
	c.motion.Start(func() {
		slots.MarkMotion()
		o.metrics.MotionEvents.Inc()
	})

	var amplitude func() float64
	if c.audio != nil {
		amplitude = c.audio.CurrentAmplitude
	}
	c.loop = sampling.New(o.opts.SampleInterval, slots, amplitude, o.queue, o.metrics)
	if lerr := c.loop.Start(id); lerr != nil {
		return c, &StartError{Reason: ReasonStartup, Err: lerr}
	}
	return c, nil
}

// teardown stops whatever c holds, sampling first so no sample is built
// from half-stopped sensors.
func (o *Orchestrator) teardown(c *components) {
	if c == nil {
		return
	}
	if c.loop != nil {
		c.loop.Stop()
	}
	if c.motion != nil {
		c.motion.Stop()
	}
	if c.light != nil {
		c.light.Stop()
	}
	if c.audio != nil {
		c.audio.StopRecording()
	}
	if c.foreground {
		o.opts.Foreground.Release()
		c.foreground = false
	}
}

// audioFailed reports a capture loop that ended for good. The session keeps
// running with the last amplitude.
func (o *Orchestrator) audioFailed(id int64) func(error) {
	return func(err error) {
		o.metrics.AudioFailures.Inc()
		o.emit(Event{Kind: EventAudioFailed, SessionID: id, Message: err.Error()})
	}
}

func (o *Orchestrator) reject(id int64, err error) error {
	reason := ReasonOf(err)
	o.metrics.SessionStarts.WithLabelValues(reason.String()).Inc()
	o.emit(Event{Kind: eventForReason(reason), SessionID: id, Message: err.Error()})
	log.Printf("session: start %d rejected: %v", id, err)
	return err
}

func (o *Orchestrator) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	o.eventsMu.Lock()
	defer o.eventsMu.Unlock()
	if o.eventsClosed {
		return
	}
	select {
	case o.events <- e:
	default:
		log.Printf("session: event %q dropped, channel full", e.Kind)
	}
}

func motionMode(d *motion.Detector) string {
	switch {
	case !d.IsAvailable():
		return "none"
	case d.IsFallback():
		return "accelerometer"
	default:
		return "hardware"
	}
}
