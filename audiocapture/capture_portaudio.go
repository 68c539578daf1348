package audiocapture

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// portaudioImpl captures from the default input device via PortAudio.
type portaudioImpl struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	mono   []float32
}

func newCaptureImpl() captureImpl {
	return &portaudioImpl{}
}

func (p *portaudioImpl) open(cfg Config, callback func(frames []float32)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: init: %v", ErrDeviceUnavailable, err)
	}

	stream, err := portaudio.OpenDefaultStream(
		cfg.Channels, 0, float64(cfg.SampleRate), cfg.FramesPerBuffer,
		func(in []float32) {
			callback(p.downmix(cfg.Channels, in))
		},
	)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("%w: open stream: %v", ErrDeviceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("%w: start stream: %v", ErrDeviceUnavailable, err)
	}

	p.stream = stream
	return nil
}

func (p *portaudioImpl) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	stopErr := p.stream.Stop()
	closeErr := p.stream.Close()
	p.stream = nil
	_ = portaudio.Terminate()

	if stopErr != nil {
		return fmt.Errorf("stop stream: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close stream: %w", closeErr)
	}
	return nil
}

// downmix averages interleaved channels into the reused mono scratch buffer.
// The result is only valid until the next device callback, which is fine:
// the recorder copies it before returning.
func (p *portaudioImpl) downmix(channels int, in []float32) []float32 {
	if channels <= 1 {
		return in
	}
	n := len(in) / channels
	if cap(p.mono) < n {
		p.mono = make([]float32, n)
	}
	mono := p.mono[:n]
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += in[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
