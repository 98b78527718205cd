// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"log"
	"sync"
	"time"
)

// DefaultPollInterval is used when a poller is created with a non-positive interval.
const DefaultPollInterval = 200 * time.Millisecond

// Poller calls fn on its own goroutine every interval until Stop. It stands
// in for a platform sensor callback: fn should read, store and return.
type Poller struct {
	name     string
	interval time.Duration
	fn       func()

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(name string, interval time.Duration, fn func()) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{name: name, interval: interval, fn: fn}
}

// Start begins polling. Starting a running poller does nothing.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stop, p.done)
}

// Stop halts polling and waits for an in-flight call to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether the poller goroutine is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *Poller) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.call()
		}
	}
}

// call runs fn, swallowing a panic so one bad callback does not kill the sensor.
func (p *Poller) call() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s: callback panic: %v", p.name, r)
		}
	}()
	p.fn()
}
