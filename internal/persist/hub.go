// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package persist

import (
	"context"
	"sync"

	"github.com/relabs-tech/focus_sensors/internal/sample"
)

// Hub fans samples out to live subscribers such as websocket clients.
// Slow subscribers miss samples rather than holding up the writer.
type Hub struct {
	mu   sync.Mutex
	subs map[chan sample.Sample]struct{}
	last *sample.Sample
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan sample.Sample]struct{})}
}

// Name implements Sink.
func (h *Hub) Name() string { return "hub" }

// Append implements Sink.
func (h *Hub) Append(_ context.Context, s sample.Sample) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &s
	for ch := range h.subs {
		select {
		case ch <- s:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of future samples and a function that
// unsubscribes and closes it.
func (h *Hub) Subscribe(buffer int) (<-chan sample.Sample, func()) {
	ch := make(chan sample.Sample, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Last returns the most recent sample, if any.
func (h *Hub) Last() (sample.Sample, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return sample.Sample{}, false
	}
	return *h.last, true
}

var _ Sink = (*Hub)(nil)
