// SPDX-License-Identifier: MIT
// Package transport delivers rendered frames to their consumers: the light
// fixture, browser clients, the terminal UI or the log.
package transport

import (
	"errors"
	"time"
)

// Panel is the color one fixture panel shows for a frame.
type Panel struct {
	ID    uint16  `json:"id"`
	R     uint8   `json:"r"`
	G     uint8   `json:"g"`
	B     uint8   `json:"b"`
	Level float64 `json:"level"` // HSL lightness in percent after the intensity mapping
}

// Frame is the output of one render cycle. Frames are never modified after
// they are sent, so transports may keep them.
type Frame struct {
	Seq          uint64    `json:"seq"`
	Timestamp    time.Time `json:"timestamp"`
	Spectrum     []float64 `json:"spectrum"`
	Panels       []Panel   `json:"panels"`
	TransitionDS uint16    `json:"transition_ds"` // fade time in deciseconds
}

// Transport sends frames somewhere. Send is called from the render loop and
// must not block for long; Close releases the transport's resources.
type Transport interface {
	Send(frame *Frame) error
	Close() error
}

// Multi fans a frame out to several transports. A failing transport does not
// stop delivery to the others.
type Multi []Transport

// Send delivers frame to every transport and joins their errors.
func (m Multi) Send(frame *Frame) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
