// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"fmt"
	"time"
)

// State is the orchestrator lifecycle: Idle → Starting → Running → Stopping → Idle.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText lets State appear as a string in JSON status documents.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventKind names an orchestrator event.
type EventKind int

const (
	EventSessionStarted EventKind = iota + 1
	EventSessionStopped
	EventAlreadyRunning
	EventInvalidSession
	EventPermissionMissing
	EventDeviceInitFailed
	EventStartFailed
	EventAudioFailed
)

func (k EventKind) String() string {
	switch k {
	case EventSessionStarted:
		return "session started"
	case EventSessionStopped:
		return "session stopped"
	case EventAlreadyRunning:
		return "already running"
	case EventInvalidSession:
		return "invalid session"
	case EventPermissionMissing:
		return "missing permission"
	case EventDeviceInitFailed:
		return "device initialization failed"
	case EventStartFailed:
		return "startup failed"
	case EventAudioFailed:
		return "audio device failed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is published on the orchestrator's event channel.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID int64     `json:"session_id"`
	Time      time.Time `json:"time"`
	Message   string    `json:"message,omitempty"`
}

func eventForReason(r Reason) EventKind {
	switch r {
	case ReasonAlreadyRunning:
		return EventAlreadyRunning
	case ReasonInvalidSession:
		return EventInvalidSession
	case ReasonPermissionMissing:
		return EventPermissionMissing
	case ReasonDeviceInit:
		return EventDeviceInitFailed
	default:
		return EventStartFailed
	}
}
