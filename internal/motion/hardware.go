// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"log"
	"sync"

	"github.com/relabs-tech/focus_sensors/internal/sensors"
)

// hardwareStrategy re-arms a one-shot trigger after every event.
type hardwareStrategy struct {
	trigger sensors.MotionTrigger

	mu     sync.Mutex
	active bool
	fire   func()
}

func (h *hardwareStrategy) available() bool { return true }

func (h *hardwareStrategy) start(fire func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active {
		return
	}
	h.active = true
	h.fire = fire
	if err := h.trigger.RequestTrigger(h.onTrigger); err != nil {
		log.Printf("motion: request trigger: %v", err)
	}
}

func (h *hardwareStrategy) onTrigger() {
	h.mu.Lock()
	fire := h.fire
	active := h.active
	h.mu.Unlock()
	if !active {
		return
	}

	fire()

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return
	}
	if err := h.trigger.RequestTrigger(h.onTrigger); err != nil {
		log.Printf("motion: re-arm trigger: %v", err)
	}
}

// stop cancels the pending trigger request so no platform registration is left behind.
func (h *hardwareStrategy) stop() {
	h.mu.Lock()
	wasActive := h.active
	h.active = false
	h.fire = nil
	h.mu.Unlock()

	if !wasActive {
		return
	}
	if err := h.trigger.CancelTrigger(); err != nil {
		log.Printf("motion: cancel trigger: %v", err)
	}
}
