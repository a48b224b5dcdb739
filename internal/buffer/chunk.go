// SPDX-License-Identifier: MIT
package buffer

// chunk is one block of mono samples captured at a single sample rate.
// The payload is never modified after enqueue; only position advances.
type chunk struct {
	samples  []float32
	rate     float64
	position int
}

// remaining returns the number of unread samples.
func (c *chunk) remaining() int {
	return len(c.samples) - c.position
}

// drained reports whether every sample has been read.
func (c *chunk) drained() bool {
	return c.position == len(c.samples)
}

// read consumes up to d worth of samples from the cursor and returns them
// together with the wall-clock time they represent at the chunk's rate.
func (c *chunk) read(d float64) ([]float32, float64) {
	want := int(d * c.rate)
	n := min(want, c.remaining())
	if n <= 0 {
		return nil, 0
	}

	data := c.samples[c.position : c.position+n]
	c.position += n

	return data, float64(n) / c.rate
}

