// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning    = errors.New("session already running")
	ErrInvalidSession    = errors.New("invalid session id")
	ErrPermissionMissing = errors.New("microphone permission missing")
	ErrDeviceInit        = errors.New("sensor device initialization failed")
	ErrStartup           = errors.New("session startup failed")
	ErrShutdown          = errors.New("orchestrator shut down")
)

// Reason classifies why StartSession failed.
type Reason int

const (
	ReasonAlreadyRunning Reason = iota + 1
	ReasonInvalidSession
	ReasonPermissionMissing
	ReasonDeviceInit
	ReasonStartup
)

// String returns the short human-readable reason shown at the boundary.
func (r Reason) String() string {
	switch r {
	case ReasonAlreadyRunning:
		return "already running"
	case ReasonInvalidSession:
		return "invalid session"
	case ReasonPermissionMissing:
		return "missing permission"
	case ReasonDeviceInit:
		return "device initialization failed"
	case ReasonStartup:
		return "startup failed"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonAlreadyRunning:
		return ErrAlreadyRunning
	case ReasonInvalidSession:
		return ErrInvalidSession
	case ReasonPermissionMissing:
		return ErrPermissionMissing
	case ReasonDeviceInit:
		return ErrDeviceInit
	default:
		return ErrStartup
	}
}

// StartError is returned by StartSession. It matches the sentinel for its
// Reason with errors.Is, as well as the underlying cause.
type StartError struct {
	Reason Reason
	Err    error
}

func (e *StartError) Error() string {
	if e.Err == nil {
		return e.Reason.String()
	}
	return e.Reason.String() + ": " + e.Err.Error()
}

func (e *StartError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason.sentinel()}
	}
	return []error{e.Reason.sentinel(), e.Err}
}

// ReasonOf extracts the StartError reason from err, or 0 when err is not one.
func ReasonOf(err error) Reason {
	var se *StartError
	if errors.As(err, &se) {
		return se.Reason
	}
	return 0
}
