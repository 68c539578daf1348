// Package stt provides the speech-to-text provider interface and its
// implementations. Providers are synchronous and potentially slow; callers
// own any timeout handling.
package stt

import (
	"errors"
	"time"
)

// ErrNotReady is returned by Transcribe when the provider needs Setup first.
var ErrNotReady = errors.New("stt provider not ready")

// TranscribeResult is the outcome of one transcription.
type TranscribeResult struct {
	Text     string    `json:"text"`     // full transcribed text
	Language string    `json:"language"` // detected language code, may be empty
	Segments []Segment `json:"segments"` // time-stamped segments, may be empty
}

// Segment is a time-stamped piece of the transcription.
type Segment struct {
	Text  string        `json:"text"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Provider converts captured audio to text. Implementations must be safe
// for sequential reuse; the controller never issues concurrent calls.
type Provider interface {
	// Name returns the provider identifier used in config.
	Name() string

	// DisplayName returns the human-readable provider name.
	DisplayName() string

	// IsLocal reports whether transcription runs fully on-device.
	IsLocal() bool

	// IsReady reports whether the provider can transcribe right now.
	IsReady() bool

	// Setup performs one-time initialization such as a model download.
	// The progress callback, when non-nil, receives a 0-100 percentage.
	Setup(progress func(percent int)) error

	// Transcribe converts mono 16 kHz float32 PCM samples to text.
	// language is a source hint, empty or "auto" for auto-detection.
	Transcribe(samples []float32, language string) (*TranscribeResult, error)

	// Close releases provider resources.
	Close() error
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, replacing any previous one with the same name.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider by name, nil when absent.
func (r *Registry) Get(name string) Provider {
	return r.providers[name]
}

// List returns all registered providers.
func (r *Registry) List() []Provider {
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// Close releases every registered provider, returning the first error.
func (r *Registry) Close() error {
	var first error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
