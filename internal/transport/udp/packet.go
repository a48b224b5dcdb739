// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"leafpipe/internal/transport"
)

/*
Streaming control frame (BigEndian), one UDP datagram per render cycle:

+----------------------------------------------------------------+
| Field         | Data Type | Size (Bytes) | Description          |
|---------------|-----------|--------------|----------------------|
| Panel Count   | uint16    | 2            | Number of records N  |
| Records       | []record  | N * 8        | One per panel        |
+----------------------------------------------------------------+

Record:

|<- 2 Bytes ->|<1>|<1>|<1>|<1>|<-- 2 Bytes -->|
+-------------+---+---+---+---+---------------+
|  Panel ID   | R | G | B | W |  Transition   |
|  (uint16)   |   |   |   | 0 | (deciseconds) |
+-------------+---+---+---+---+---------------+
*/

// RecordSize is the encoded size of one panel record.
const RecordSize = 8

// MaxPanels is the largest panel count a frame can carry.
const MaxPanels = math.MaxUint16

type record struct {
	ID         uint16
	R, G, B, W uint8
	Transition uint16
}

// EncodeFrame writes the control frame for frame's panels into buf,
// replacing its contents.
func EncodeFrame(buf *bytes.Buffer, frame *transport.Frame) error {
	if len(frame.Panels) > MaxPanels {
		return fmt.Errorf("frame %d has %d panels, at most %d fit", frame.Seq, len(frame.Panels), MaxPanels)
	}

	buf.Reset()
	buf.Grow(2 + RecordSize*len(frame.Panels))

	if err := binary.Write(buf, binary.BigEndian, uint16(len(frame.Panels))); err != nil {
		return err
	}
	for _, p := range frame.Panels {
		rec := record{
			ID:         p.ID,
			R:          p.R,
			G:          p.G,
			B:          p.B,
			Transition: frame.TransitionDS,
		}
		if err := binary.Write(buf, binary.BigEndian, rec); err != nil {
			return err
		}
	}
	return nil
}
