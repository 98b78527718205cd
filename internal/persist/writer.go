// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package persist

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/focus_sensors/internal/metrics"
	"github.com/relabs-tech/focus_sensors/internal/sample"
)

// DefaultQueueSize bounds the samples waiting for the sink.
const DefaultQueueSize = 256

// Writer is a single-worker queue in front of a Sink. Samples reach the
// sink strictly in enqueue order and Enqueue never blocks the caller.
type Writer struct {
	sink    Sink
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan sample.Sample

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWriter starts the worker.
func NewWriter(sink Sink, size int, m *metrics.Metrics) *Writer {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if m == nil {
		m = metrics.New(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		sink:    sink,
		metrics: m,
		queue:   make(chan sample.Sample, size),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue queues s for the sink. It returns false and drops s when the
// queue is full or the writer is closed.
func (w *Writer) Enqueue(s sample.Sample) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.metrics.SamplesDropped.Inc()
		return false
	}
	select {
	case w.queue <- s:
		return true
	default:
		w.metrics.SamplesDropped.Inc()
		log.Printf("persist: queue full, dropping sample session=%d seq=%d", s.SessionID, s.Seq)
		return false
	}
}

// Close stops accepting samples and waits for the queue to drain. When ctx
// ends first the in-flight append is cancelled, the remaining samples are
// dropped and ctx.Err() is returned without waiting for the sink.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		log.Printf("persist: drain interrupted: %v", ctx.Err())
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)

	name := w.sink.Name()
	for s := range w.queue {
		if w.ctx.Err() != nil {
			w.metrics.SamplesDropped.Inc()
			continue
		}

		start := time.Now()
		err := w.sink.Append(w.ctx, s)
		w.metrics.PersistLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			w.metrics.PersistErrors.WithLabelValues(name).Inc()
			log.Printf("persist: %s append session=%d seq=%d: %v", name, s.SessionID, s.Seq, err)
			continue
		}
		w.metrics.SamplesPersisted.WithLabelValues(name).Inc()
	}
}
