// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package persist hands sensor samples to their append-only destinations.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/relabs-tech/focus_sensors/internal/sample"
)

// Sink stores samples. Append must honour ctx cancellation.
type Sink interface {
	Append(ctx context.Context, s sample.Sample) error
	Name() string
}

// MultiSink appends every sample to all of its sinks.
type MultiSink []Sink

// Name implements Sink.
func (m MultiSink) Name() string { return "multi" }

// Append implements Sink. Sinks are appended to concurrently so a slow
// one does not hold back the rest, and a failing sink does not stop the
// others. Append returns once every sink has finished.
func (m MultiSink) Append(ctx context.Context, s sample.Sample) error {
	errs := make([]error, len(m))
	var wg sync.WaitGroup
	for i, sink := range m {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sink.Append(ctx, s); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

var _ Sink = MultiSink(nil)
