// Package audiocapture records microphone audio into an accumulating
// sample buffer suitable for one-shot transcription.
package audiocapture

import (
	"errors"
	"sync"
	"time"
)

// ErrNotRecording is returned when trying to finalize while not recording.
var ErrNotRecording = errors.New("not recording audio")

// ErrAlreadyRecording is returned when trying to start while already recording.
var ErrAlreadyRecording = errors.New("already recording audio")

// ErrDeviceUnavailable is returned when no input device can be opened.
var ErrDeviceUnavailable = errors.New("audio input device unavailable")

// Config holds configuration for audio capture.
type Config struct {
	SampleRate      int // default 16000 Hz (what Whisper expects)
	Channels        int // default 1 (mono)
	FramesPerBuffer int // device callback granularity, default 1024
}

// DefaultConfig returns the default capture configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		Channels:        1,
		FramesPerBuffer: 1024,
	}
}

// Capture is one finalized recording. Samples are mono float32 in [-1, 1]
// and owned by the caller; the recorder keeps no reference to them.
type Capture struct {
	Samples    []float32
	SampleRate int
	StartedAt  time.Time
}

// Empty reports whether no frames were delivered during the recording.
func (c Capture) Empty() bool { return len(c.Samples) == 0 }

// Duration returns the audio duration implied by the sample count.
func (c Capture) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// captureImpl is the device-facing implementation interface. The callback
// runs on the audio device's thread and must only copy; the frames slice is
// owned by the device and invalid after the callback returns.
type captureImpl interface {
	open(cfg Config, callback func(frames []float32)) error
	close() error
}

// Recorder owns one input stream and the buffer its callback fills.
// The buffer is either being written by the device callback or being
// consumed by Finalize, never both: Finalize detaches the device before
// moving the samples out.
type Recorder struct {
	cfg  Config
	impl captureImpl

	mu        sync.Mutex
	recording bool
	startedAt time.Time
	frames    []float32
}

// New creates a Recorder using the platform audio backend.
func New(cfg Config) *Recorder {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = 1024
	}
	return &Recorder{cfg: cfg, impl: newCaptureImpl()}
}

// newRecorderWithImpl is used by tests to substitute a fake device.
func newRecorderWithImpl(cfg Config, impl captureImpl) *Recorder {
	r := New(cfg)
	r.impl = impl
	return r
}

// Start opens the input stream and begins accumulating samples.
// Returns ErrDeviceUnavailable (wrapped) when no device can be opened.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}

	if err := r.impl.open(r.cfg, r.append); err != nil {
		return err
	}

	r.recording = true
	r.startedAt = time.Now()
	r.frames = r.frames[:0]
	return nil
}

// Finalize stops the stream and moves the accumulated samples out.
// The internal buffer is reset so the next Start begins empty.
func (r *Recorder) Finalize() (Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return Capture{}, ErrNotRecording
	}

	err := r.impl.close()
	r.recording = false

	cap := Capture{
		Samples:    r.frames,
		SampleRate: r.cfg.SampleRate,
		StartedAt:  r.startedAt,
	}
	r.frames = nil
	return cap, err
}

// IsRecording reports whether a stream is currently open.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Duration returns how long the current recording has been running.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0
	}
	return time.Since(r.startedAt)
}

// SampleRate returns the configured sample rate.
func (r *Recorder) SampleRate() int { return r.cfg.SampleRate }

// append is the device callback. Copy only; frames is owned by the device.
func (r *Recorder) append(frames []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		// Stream is draining after Finalize detached it.
		return
	}
	r.frames = append(r.frames, frames...)
}
