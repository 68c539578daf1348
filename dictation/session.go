// Package dictation coordinates one push-to-talk dictation session at a
// time: hotkey signals start and stop audio capture, a transcriber turns
// the captured samples into text, and an injector delivers the text into
// the focused application.
package dictation

import "time"

// State is the controller's lifecycle position.
type State int

const (
	// StateIdle: no session; the next SessionRequested is accepted.
	StateIdle State = iota
	// StateRecording: the capture stream is open and accumulating.
	StateRecording
	// StateTranscribing: samples are finalized, inference is running.
	StateTranscribing
	// StateInjecting: text delivery into the focused window is in flight.
	StateInjecting
	// StateFailed: transient error marker; always followed by StateIdle.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateInjecting:
		return "injecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorKind classifies a failed dictation stage for observers.
type ErrorKind int

const (
	// ErrorDeviceUnavailable: the audio input device could not be opened
	// or failed while finalizing.
	ErrorDeviceUnavailable ErrorKind = iota
	// ErrorTranscriptionFailure: the speech-to-text call returned an error.
	ErrorTranscriptionFailure
	// ErrorTranscriptionTimeout: inference exceeded the configured ceiling.
	ErrorTranscriptionTimeout
	// ErrorClipboardWriteFailure: the clipboard could not be written and
	// the typing fallback also failed.
	ErrorClipboardWriteFailure
	// ErrorInjectionFailure: text delivery failed on every path.
	ErrorInjectionFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorDeviceUnavailable:
		return "device-unavailable"
	case ErrorTranscriptionFailure:
		return "transcription-failure"
	case ErrorTranscriptionTimeout:
		return "transcription-timeout"
	case ErrorClipboardWriteFailure:
		return "clipboard-write-failure"
	case ErrorInjectionFailure:
		return "injection-failure"
	default:
		return "unknown"
	}
}

// Session is one dictation attempt. At most one exists at any instant;
// it is created on an accepted SessionRequested and dropped when the
// attempt completes or fails terminally.
type Session struct {
	ID        uint64
	StartedAt time.Time
}

// Result is a completed transcription handed to the OnResult observer
// just before injection, mirroring when the history records an entry.
type Result struct {
	SessionID     uint64
	Text          string
	Language      string
	AudioDuration time.Duration
	StartedAt     time.Time
}
