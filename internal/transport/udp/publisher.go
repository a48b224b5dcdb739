// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	applog "leafpipe/internal/log"
	"leafpipe/internal/transport"
)

// packetSender is the part of UDPSender the publisher needs.
type packetSender interface {
	Send(data []byte) error
	Close() error
}

// Publisher encodes every frame as a streaming control packet and sends it
// to the fixture.
type Publisher struct {
	sender packetSender

	mu     sync.Mutex    // serializes use of packet
	packet *bytes.Buffer // reused between frames

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewPublisher dials the fixture at address.
func NewPublisher(address string) (*Publisher, error) {
	sender, err := NewUDPSender(address)
	if err != nil {
		return nil, err
	}
	return newPublisher(sender), nil
}

func newPublisher(sender packetSender) *Publisher {
	return &Publisher{
		sender: sender,
		packet: new(bytes.Buffer),
	}
}

// Send encodes and transmits frame. Frames without panels are skipped.
func (p *Publisher) Send(frame *transport.Frame) error {
	if len(frame.Panels) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := EncodeFrame(p.packet, frame); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("udp: encode frame %d: %w", frame.Seq, err)
	}
	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("udp: frame %d: %w", frame.Seq, err)
	}

	p.sent.Add(1)
	applog.Debugf("udp: sent frame %d (%d bytes)", frame.Seq, p.packet.Len())
	return nil
}

// Sent returns the number of packets delivered to the socket.
func (p *Publisher) Sent() uint64 {
	return p.sent.Load()
}

// Failed returns the number of frames that could not be sent.
func (p *Publisher) Failed() uint64 {
	return p.failed.Load()
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}

var _ transport.Transport = (*Publisher)(nil)
