// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	applog "leafpipe/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrRecorderClosed is returned by Write after Close.
var ErrRecorderClosed = errors.New("recorder closed")

const (
	recordingBitDepth = 16
	wavFormatPCM      = 1
)

// Recorder writes interleaved float32 blocks to a 16-bit PCM WAV file.
type Recorder struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer // reusable conversion buffer
	closed  bool
}

// RecordingPath returns the file name used for a recording started at now.
func RecordingPath(dir string, now time.Time) string {
	return filepath.Join(dir, "recording-"+now.UTC().Format("02-01-2006-150405")+".wav")
}

// NewRecorder creates path and prepares a WAV encoder for the given format.
func NewRecorder(path string, sampleRate, channels int) (*Recorder, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid recording format: %d Hz, %d channels", sampleRate, channels)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		path:    path,
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, recordingBitDepth, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: recordingBitDepth,
		},
	}, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string {
	return r.path
}

// Write appends interleaved samples.
func (r *Recorder) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRecorderClosed
	}

	r.buf.Data = floatToInt(r.buf.Data[:0], samples, recordingBitDepth)
	return r.encoder.Write(r.buf)
}

// Close finalizes the WAV header and closes the file. It is safe to call
// more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	encErr := r.encoder.Close()
	fileErr := r.file.Close()
	return errors.Join(encErr, fileErr)
}

// StartRecording begins writing captured input to a new file in dir and
// returns its path.
func (e *Engine) StartRecording(dir string) (string, error) {
	if e.recorder.Load() != nil {
		return "", fmt.Errorf("already recording")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}

	recorder, err := NewRecorder(RecordingPath(dir, time.Now()), int(e.sampleRate), e.config.InputChannels)
	if err != nil {
		return "", err
	}

	if !e.recorder.CompareAndSwap(nil, recorder) {
		recorder.Close()
		os.Remove(recorder.Path())
		return "", fmt.Errorf("already recording")
	}

	applog.Infof("audio: recording to %s", recorder.Path())
	return recorder.Path(), nil
}

// StopRecording finalizes the current recording, if any.
func (e *Engine) StopRecording() error {
	recorder := e.recorder.Swap(nil)
	if recorder == nil {
		return nil
	}

	if err := recorder.Close(); err != nil {
		return fmt.Errorf("failed to finalize recording %s: %w", recorder.Path(), err)
	}
	applog.Infof("audio: recording saved to %s", recorder.Path())
	return nil
}
