// SPDX-License-Identifier: MIT
/*
Package buffer holds captured audio between the real-time producer and the
periodic spectrum consumer.

Thread Safety:
- A single mutex guards the chunk list
- Push copies the caller's samples and appends, nothing else happens under the lock
- TakeNext only does in-memory slicing under the lock

Backpressure:
- The queue never holds more than the backlog target of chunks
- Once full, new chunks are discarded until the consumer catches up
*/
package buffer

import (
	"math"
	"sync"
	"time"
)

// DefaultBacklog is the number of chunks the queue holds before dropping.
const DefaultBacklog = 3

// drainTolerance is how close to zero the remaining interval must get before
// extraction stops. Float rounding rarely lands on exactly zero.
const drainTolerance = 0.001 // seconds

// Observer is notified about every Push outcome. Implementations must not block.
type Observer interface {
	ChunkQueued(samples int)
	ChunkDropped(samples int)
}

// Queue is the FIFO of chunks shared by the capture producer and the renderer.
type Queue struct {
	mu       sync.Mutex
	chunks   []*chunk
	backlog  int
	observer Observer
}

// Option configures a Queue.
type Option func(*Queue)

// WithObserver registers an observer for queued and dropped chunks.
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		q.observer = o
	}
}

// NewQueue creates a queue holding at most backlog chunks. A non-positive
// backlog falls back to DefaultBacklog.
func NewQueue(backlog int, opts ...Option) *Queue {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}

	q := &Queue{
		chunks:  make([]*chunk, 0, backlog),
		backlog: backlog,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push enqueues a copy of samples captured at rate Hz. It never blocks on the
// consumer: when the backlog is full the samples are silently discarded.
// Empty input and non-positive rates are ignored.
func (q *Queue) Push(samples []float32, rate float64) {
	if len(samples) == 0 || !(rate > 0) || math.IsInf(rate, 0) {
		return
	}

	q.mu.Lock()
	if len(q.chunks) >= q.backlog {
		q.mu.Unlock()
		if q.observer != nil {
			q.observer.ChunkDropped(len(samples))
		}
		return
	}

	data := make([]float32, len(samples))
	copy(data, samples)
	q.chunks = append(q.chunks, &chunk{samples: data, rate: rate})
	q.mu.Unlock()

	if q.observer != nil {
		q.observer.ChunkQueued(len(samples))
	}
}

// TakeNext extracts the next interval worth of samples, walking chunks front
// to back, and returns them with the blended sample rate of the slice. When
// the queue runs dry before the interval is covered, the rate is scaled up to
// represent the whole interval. An empty queue returns (nil, 0).
func (q *Queue) TakeNext(interval time.Duration) ([]float32, float64) {
	d := interval.Seconds()
	if d <= 0 {
		return nil, 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.chunks) == 0 {
		return nil, 0
	}

	var (
		values    []float32
		rate      float64
		remaining = d
	)

	for _, c := range q.chunks {
		slice, elapsed := c.read(remaining)

		rate += c.rate * elapsed / d
		values = append(values, slice...)
		remaining -= elapsed

		if remaining < drainTolerance || !c.drained() {
			break
		}
	}

	q.removeDrained()

	total := d - remaining
	if total > 0 && total < d {
		rate /= total / d
	}

	return values, rate
}

// removeDrained drops fully consumed chunks from the front. Callers hold mu.
func (q *Queue) removeDrained() {
	n := 0
	for n < len(q.chunks) && q.chunks[n].drained() {
		n++
	}
	if n == 0 {
		return
	}

	copy(q.chunks, q.chunks[n:])
	for i := len(q.chunks) - n; i < len(q.chunks); i++ {
		q.chunks[i] = nil
	}
	q.chunks = q.chunks[:len(q.chunks)-n]
}

// Len returns the number of queued chunks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

// Backlog returns the configured chunk limit.
func (q *Queue) Backlog() int {
	return q.backlog
}
