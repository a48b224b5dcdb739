// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"strings"

	applog "leafpipe/internal/log"
)

// LoggingTransport writes a one-line summary of every frame at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a LoggingTransport.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("transport: logging frames")
	return &LoggingTransport{}
}

// Send logs the frame. It never fails.
func (lt *LoggingTransport) Send(frame *Frame) error {
	if !applog.Enabled(applog.LevelDebug) {
		return nil
	}
	applog.Debugf("frame %d: spectrum [%s] panels %d", frame.Seq, formatSpectrum(frame.Spectrum), len(frame.Panels))
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

func formatSpectrum(values []float64) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.2f", v)
	}
	return sb.String()
}

var _ Transport = (*LoggingTransport)(nil)
