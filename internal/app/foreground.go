// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// LockFile is the foreground resource of the monitor: an exclusive flock
// held for the whole session so a second monitor on the same host cannot
// drive the sensors at the same time.
type LockFile struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// NewLockFile returns an unlocked lock on path.
func NewLockFile(path string) *LockFile {
	return &LockFile{path: path}
}

// Acquire takes the lock without blocking.
func (l *LockFile) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock %s: %w", l.path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("lock %s held by another monitor: %w", l.path, err)
	}
	if err := f.Truncate(0); err == nil {
		f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	}
	l.f = f
	return nil
}

// Release drops the lock. Releasing an unheld lock does nothing.
func (l *LockFile) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		log.Printf("foreground: unlock %s: %v", l.path, err)
	}
	l.f.Close()
	l.f = nil
}
