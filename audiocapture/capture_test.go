package audiocapture

import (
	"errors"
	"testing"
	"time"
)

// fakeImpl is a device stand-in whose frames are pushed by the test.
type fakeImpl struct {
	openErr  error
	closeErr error
	opened   int
	closed   int
	callback func([]float32)
}

func (f *fakeImpl) open(_ Config, cb func([]float32)) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened++
	f.callback = cb
	return nil
}

func (f *fakeImpl) close() error {
	f.closed++
	return f.closeErr
}

func (f *fakeImpl) push(frames []float32) {
	f.callback(frames)
}

func TestStartFinalizeAccumulates(t *testing.T) {
	impl := &fakeImpl{}
	r := newRecorderWithImpl(DefaultConfig(), impl)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !r.IsRecording() {
		t.Fatal("expected recording state after Start")
	}

	impl.push([]float32{0.1, 0.2})
	impl.push([]float32{0.3})

	cap, err := r.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got, want := len(cap.Samples), 3; got != want {
		t.Fatalf("got %d samples, want %d", got, want)
	}
	if cap.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", cap.SampleRate)
	}
	if r.IsRecording() {
		t.Error("expected idle state after Finalize")
	}
}

func TestFinalizeResetsBuffer(t *testing.T) {
	impl := &fakeImpl{}
	r := newRecorderWithImpl(DefaultConfig(), impl)

	if err := r.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	impl.push([]float32{0.5, 0.5, 0.5})
	first, err := r.Finalize()
	if err != nil {
		t.Fatalf("first Finalize: %v", err)
	}

	// No cross-session leakage: the second capture starts empty, and
	// appending to it must not alias the first capture's samples.
	if err := r.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	impl.push([]float32{-1})
	second, err := r.Finalize()
	if err != nil {
		t.Fatalf("second Finalize: %v", err)
	}

	if len(second.Samples) != 1 {
		t.Fatalf("second capture has %d samples, want 1", len(second.Samples))
	}
	if first.Samples[0] != 0.5 {
		t.Error("first capture mutated by second recording")
	}
}

func TestEmptyCapture(t *testing.T) {
	impl := &fakeImpl{}
	r := newRecorderWithImpl(DefaultConfig(), impl)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cap, err := r.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !cap.Empty() {
		t.Error("expected empty capture when no frames were delivered")
	}
	if cap.Duration() != 0 {
		t.Errorf("empty capture duration = %v, want 0", cap.Duration())
	}
}

func TestStateErrors(t *testing.T) {
	impl := &fakeImpl{}
	r := newRecorderWithImpl(DefaultConfig(), impl)

	if _, err := r.Finalize(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Finalize while idle: got %v, want ErrNotRecording", err)
	}

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("double Start: got %v, want ErrAlreadyRecording", err)
	}
	if impl.opened != 1 {
		t.Errorf("device opened %d times, want 1", impl.opened)
	}
}

func TestDeviceUnavailable(t *testing.T) {
	impl := &fakeImpl{openErr: ErrDeviceUnavailable}
	r := newRecorderWithImpl(DefaultConfig(), impl)

	if err := r.Start(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("got %v, want ErrDeviceUnavailable", err)
	}
	if r.IsRecording() {
		t.Error("recorder must stay idle when the device fails to open")
	}

	// A later Start must succeed once the device is back.
	impl.openErr = nil
	if err := r.Start(); err != nil {
		t.Fatalf("Start after device restored: %v", err)
	}
}

func TestCaptureDuration(t *testing.T) {
	c := Capture{Samples: make([]float32, 16000), SampleRate: 16000}
	if got := c.Duration(); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
}

func TestLateCallbackAfterFinalize(t *testing.T) {
	impl := &fakeImpl{}
	r := newRecorderWithImpl(DefaultConfig(), impl)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	impl.push([]float32{1})
	cap, err := r.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// A frame delivered while the stream drains must not land anywhere.
	impl.push([]float32{2, 2})

	if len(cap.Samples) != 1 {
		t.Errorf("finalized capture grew after Finalize: %d samples", len(cap.Samples))
	}
}
