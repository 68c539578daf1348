package dictation

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Anon-E-Mus/cutewhisper/audiocapture"
	"github.com/Anon-E-Mus/cutewhisper/injection"
	"github.com/Anon-E-Mus/cutewhisper/stt"
)

// ErrTranscribeTimeout marks an inference call that exceeded the ceiling.
var ErrTranscribeTimeout = errors.New("transcription timed out")

const defaultTranscribeTimeout = 2 * time.Minute

// Recorder is the capture surface the controller drives. Start and
// Finalize are quick; the device feeds the recorder between them.
type Recorder interface {
	Start() error
	Finalize() (audiocapture.Capture, error)
}

// Transcriber converts finalized samples to text. Synchronous and
// potentially slow; the controller runs it off the signal path.
type Transcriber interface {
	Transcribe(samples []float32, language string) (*stt.TranscribeResult, error)
}

// Injector delivers text into the focused application.
type Injector interface {
	Inject(text string) (injection.Outcome, error)
}

// Config holds the static session parameters. The controller never
// reloads them mid-session.
type Config struct {
	// Language is the source-language hint passed to the transcriber.
	Language string
	// TranscribeTimeout bounds one inference call. Zero means the default.
	TranscribeTimeout time.Duration
}

// Controller is the dictation session state machine. The mutex around the
// state field is the single serialization point: transitions are atomic,
// while the slow work a transition triggers (inference, injection) runs on
// a worker goroutine outside the lock. Observer callbacks fire under the
// lock so state notifications arrive in transition order; they must be
// fast and must not call back into the controller.
type Controller struct {
	cfg Config
	rec Recorder
	tr  Transcriber
	inj Injector

	mu      sync.Mutex
	state   State
	lastID  uint64
	session *Session

	onStateChanged func(State)
	onError        func(ErrorKind, error)
	onResult       func(Result)
}

// NewController wires the collaborators into an idle controller.
func NewController(cfg Config, rec Recorder, tr Transcriber, inj Injector) *Controller {
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = defaultTranscribeTimeout
	}
	return &Controller{cfg: cfg, rec: rec, tr: tr, inj: inj, state: StateIdle}
}

// OnStateChanged registers the state observer. Set before Start-ing the
// hotkey listener; not safe to swap mid-session.
func (c *Controller) OnStateChanged(fn func(State)) { c.onStateChanged = fn }

// OnError registers the error observer.
func (c *Controller) OnError(fn func(ErrorKind, error)) { c.onError = fn }

// OnResult registers the transcription-result observer, called just
// before injection begins.
func (c *Controller) OnResult(fn func(Result)) { c.onResult = fn }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleSessionRequested starts a new session when idle. In any other
// state the signal is idempotently ignored: key repeat and duplicate
// hotkey presses are expected, not errors.
func (c *Controller) HandleSessionRequested() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		slog.Debug("session request ignored", "state", c.state)
		return
	}

	c.lastID++
	c.session = &Session{ID: c.lastID, StartedAt: time.Now()}

	if err := c.rec.Start(); err != nil {
		// Never reached Recording; fail and return to idle immediately.
		c.failLocked(ErrorDeviceUnavailable, fmt.Errorf("open capture: %w", err))
		return
	}

	c.setStateLocked(StateRecording)
	slog.Info("recording started", "session", c.session.ID)
}

// HandleSessionReleased finalizes the capture and hands the samples to a
// worker goroutine for transcription and injection. Ignored unless
// recording, so a release that raced ahead of its request is dropped.
func (c *Controller) HandleSessionReleased() {
	c.mu.Lock()

	if c.state != StateRecording {
		slog.Debug("session release ignored", "state", c.state)
		c.mu.Unlock()
		return
	}

	c.setStateLocked(StateTranscribing)

	capture, err := c.rec.Finalize()
	if err != nil {
		c.failLocked(ErrorDeviceUnavailable, fmt.Errorf("finalize capture: %w", err))
		c.mu.Unlock()
		return
	}

	if capture.Empty() {
		// Near-zero hold time. Not an error; nothing to transcribe.
		slog.Info("empty capture, skipping transcription", "session", c.session.ID)
		c.setStateLocked(StateIdle)
		c.session = nil
		c.mu.Unlock()
		return
	}

	sess := *c.session
	c.mu.Unlock()

	go c.process(sess, capture)
}

// process runs the slow half of a session: inference, then injection.
// It owns the capture exclusively; the recorder buffer was already reset.
func (c *Controller) process(sess Session, capture audiocapture.Capture) {
	result, err := c.transcribe(capture)

	c.mu.Lock()
	if !c.currentLocked(sess.ID) {
		// A timed-out predecessor finishing late; its text must never
		// leak into a newer session's delivery.
		c.mu.Unlock()
		return
	}
	if err != nil {
		kind := ErrorTranscriptionFailure
		if errors.Is(err, ErrTranscribeTimeout) {
			kind = ErrorTranscriptionTimeout
		}
		c.failLocked(kind, err)
		c.mu.Unlock()
		return
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		// Normal "no speech detected" outcome; nothing to inject.
		slog.Info("no speech detected", "session", sess.ID)
		c.setStateLocked(StateIdle)
		c.session = nil
		c.mu.Unlock()
		return
	}

	c.setStateLocked(StateInjecting)
	c.mu.Unlock()

	if c.onResult != nil {
		c.onResult(Result{
			SessionID:     sess.ID,
			Text:          text,
			Language:      result.Language,
			AudioDuration: capture.Duration(),
			StartedAt:     sess.StartedAt,
		})
	}

	outcome, injErr := c.inj.Inject(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if outcome == injection.OutcomeFailed {
		kind := ErrorInjectionFailure
		if errors.Is(injErr, injection.ErrClipboardWrite) {
			kind = ErrorClipboardWriteFailure
		}
		c.failLocked(kind, injErr)
		return
	}

	slog.Info("dictation delivered",
		"session", sess.ID,
		"outcome", outcome,
		"chars", len(text),
		"audio", capture.Duration().Round(time.Millisecond))
	c.setStateLocked(StateIdle)
	c.session = nil
}

// transcribe bounds the synchronous inference call with the configured
// ceiling. On timeout the inner goroutine is abandoned; its late result
// is discarded by the session-id check in process.
func (c *Controller) transcribe(capture audiocapture.Capture) (*stt.TranscribeResult, error) {
	type reply struct {
		res *stt.TranscribeResult
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		res, err := c.tr.Transcribe(capture.Samples, c.cfg.Language)
		ch <- reply{res, err}
	}()

	select {
	case r := <-ch:
		return r.res, r.err
	case <-time.After(c.cfg.TranscribeTimeout):
		return nil, fmt.Errorf("%w after %s", ErrTranscribeTimeout, c.cfg.TranscribeTimeout)
	}
}

// currentLocked reports whether id is still the live session.
func (c *Controller) currentLocked(id uint64) bool {
	return c.session != nil && c.session.ID == id
}

// failLocked records a stage failure and self-heals: Failed is always
// followed by Idle so the next SessionRequested proceeds normally.
func (c *Controller) failLocked(kind ErrorKind, err error) {
	slog.Error("dictation failed", "kind", kind, "error", err)
	c.setStateLocked(StateFailed)
	if c.onError != nil {
		c.onError(kind, err)
	}
	c.setStateLocked(StateIdle)
	c.session = nil
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	if c.onStateChanged != nil {
		c.onStateChanged(s)
	}
}
