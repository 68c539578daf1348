// Package app wires the dictation pipeline together: hotkey listener,
// audio capture, speech-to-text, text injection, history and
// notifications, all driven by the session controller.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Anon-E-Mus/cutewhisper/audiocapture"
	"github.com/Anon-E-Mus/cutewhisper/clipboard"
	"github.com/Anon-E-Mus/cutewhisper/config"
	"github.com/Anon-E-Mus/cutewhisper/dictation"
	"github.com/Anon-E-Mus/cutewhisper/history"
	"github.com/Anon-E-Mus/cutewhisper/hotkey"
	"github.com/Anon-E-Mus/cutewhisper/injection"
	"github.com/Anon-E-Mus/cutewhisper/langdetect"
	"github.com/Anon-E-Mus/cutewhisper/notify"
	"github.com/Anon-E-Mus/cutewhisper/stt"
	"github.com/Anon-E-Mus/cutewhisper/wavfile"
)

// How long abandoned scratch WAVs may linger before startup cleanup
// removes them.
const tempMaxAge = 24 * time.Hour

// App owns the long-lived components and their lifecycle.
type App struct {
	cfg *config.Config

	recorder   *tapRecorder
	registry   *stt.Registry
	provider   stt.Provider
	controller *dictation.Controller
	hotkeys    *hotkey.Manager
	store      *history.Store
	notifier   *notify.Notifier

	recordingsDir string
}

// New creates an App for the given configuration. Call Run to start it.
func New(cfg *config.Config) *App {
	return &App{cfg: cfg, notifier: notify.New(cfg.Notifications)}
}

// Run starts the pipeline and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.start(); err != nil {
		return err
	}
	slog.Info("ready", "hotkey", a.cfg.Hotkey, "provider", a.provider.DisplayName())

	<-ctx.Done()
	a.shutdown()
	return nil
}

func (a *App) start() error {
	if n := wavfile.CleanupOld(os.TempDir(), tempMaxAge); n > 0 {
		slog.Info("removed stale recordings", "count", n)
	}

	a.recorder = &tapRecorder{rec: audiocapture.New(audiocapture.Config{
		SampleRate:      a.cfg.Audio.SampleRate,
		Channels:        a.cfg.Audio.Channels,
		FramesPerBuffer: a.cfg.Audio.FramesPerBuffer,
	})}

	if err := a.setupProvider(); err != nil {
		return err
	}
	if err := a.setupHistory(); err != nil {
		return err
	}

	injector := injection.New(clipboard.New(), injection.NewSystemKeyboard(), injection.Options{
		PreserveClipboard: a.cfg.Injection.PreserveClipboard,
		SettleDelay:       a.cfg.SettleDelay(),
	})

	a.controller = dictation.NewController(dictation.Config{
		Language:          a.cfg.Whisper.Language,
		TranscribeTimeout: a.cfg.TranscribeTimeout(),
	}, a.recorder, a.provider, injector)

	a.controller.OnStateChanged(func(s dictation.State) {
		slog.Debug("session state", "state", s)
	})
	a.controller.OnError(a.handleError)
	a.controller.OnResult(a.handleResult)

	mgr, err := hotkey.NewManager(a.cfg.Hotkey,
		a.controller.HandleSessionRequested,
		a.controller.HandleSessionReleased,
	)
	if err != nil {
		return fmt.Errorf("hotkey %q: %w", a.cfg.Hotkey, err)
	}
	a.hotkeys = mgr
	if err := a.hotkeys.Start(); err != nil {
		return fmt.Errorf("start hotkey listener: %w", err)
	}
	return nil
}

func (a *App) shutdown() {
	slog.Info("shutting down")
	if a.hotkeys != nil {
		a.hotkeys.Stop()
	}
	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			slog.Error("close providers", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("close history", "error", err)
		}
	}
}

// setupProvider registers the configured speech-to-text backends and
// prepares the active one, downloading its model on first run.
func (a *App) setupProvider() error {
	a.registry = stt.NewRegistry()

	local, err := stt.NewWhisperLocal(stt.WhisperLocalConfig{
		ModelSize: a.cfg.Whisper.ModelSize,
		ModelDir:  a.cfg.Whisper.ModelDir,
		BinPath:   a.cfg.Whisper.BinPath,
	})
	if err != nil {
		return fmt.Errorf("local whisper: %w", err)
	}
	a.registry.Register(local)
	a.registry.Register(stt.NewWhisperAPI(stt.WhisperAPIConfig{
		APIKey:  a.cfg.Whisper.APIKey,
		BaseURL: a.cfg.Whisper.BaseURL,
		Model:   a.cfg.Whisper.APIModel,
	}))

	name := providerName(a.cfg.Whisper.Provider)
	p := a.registry.Get(name)
	if p == nil {
		return fmt.Errorf("unknown stt provider: %s", a.cfg.Whisper.Provider)
	}

	if !p.IsReady() {
		slog.Info("preparing stt provider", "provider", p.DisplayName())
		lastPct := -1
		err := p.Setup(func(percent int) {
			// Downloads report every chunk; log decade steps only.
			if percent/10 > lastPct/10 {
				slog.Info("model download", "percent", percent)
			}
			lastPct = percent
		})
		if err != nil {
			return fmt.Errorf("setup %s: %w", p.Name(), err)
		}
		a.notifier.Info("%s is ready", p.DisplayName())
	}

	a.provider = p
	return nil
}

func (a *App) setupHistory() error {
	if !a.cfg.History.Enabled {
		return nil
	}

	path, err := a.cfg.HistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	a.store = store

	if a.cfg.History.KeepAudio {
		dir, err := a.cfg.RecordingsDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create recordings dir: %w", err)
		}
		a.recordingsDir = dir
	}
	return nil
}

func (a *App) handleError(kind dictation.ErrorKind, err error) {
	slog.Error("dictation failed", "kind", kind, "error", err)
	a.notifier.Error("Dictation failed: %s", kind)
}

// handleResult runs on the controller's worker goroutine just before
// injection, so it must stay quick; the history write is local disk IO.
func (a *App) handleResult(res dictation.Result) {
	lang := res.Language
	if lang == "" {
		lang = langdetect.Detect(res.Text)
	}
	slog.Info("transcribed",
		"session", res.SessionID,
		"chars", len(res.Text),
		"language", lang,
		"audio", res.AudioDuration.Round(time.Millisecond),
	)

	if a.store == nil {
		return
	}

	entry := history.Entry{
		CreatedAt: res.StartedAt,
		Text:      res.Text,
		Language:  lang,
		Duration:  res.AudioDuration,
	}
	if a.recordingsDir != "" {
		if path := a.saveRecording(res); path != "" {
			entry.AudioPath = path
		}
	}
	if _, err := a.store.Add(entry); err != nil {
		slog.Warn("record history", "error", err)
	}
}

// saveRecording writes the session's audio next to the history entry.
// Sessions are serialized, so the recorder's last capture is this one.
func (a *App) saveRecording(res dictation.Result) string {
	capture := a.recorder.last()
	if capture.Empty() {
		return ""
	}
	name := fmt.Sprintf("%s_%d.wav", res.StartedAt.Format("20060102_150405"), res.SessionID)
	path := filepath.Join(a.recordingsDir, name)
	if err := wavfile.Write(path, capture.Samples, capture.SampleRate); err != nil {
		slog.Warn("save recording", "error", err)
		return ""
	}
	return path
}

// History returns the history store, nil when disabled.
func (a *App) History() *history.Store { return a.store }

// Providers returns the registered speech-to-text backends.
func (a *App) Providers() []stt.Provider { return a.registry.List() }

func providerName(configured string) string {
	switch configured {
	case "api":
		return "whisper-api"
	default:
		return "whisper-local"
	}
}

// tapRecorder forwards to the real recorder and keeps the most recent
// finalized capture so a completed session's audio can be saved.
type tapRecorder struct {
	rec *audiocapture.Recorder

	mu   sync.Mutex
	prev audiocapture.Capture
}

func (t *tapRecorder) Start() error { return t.rec.Start() }

func (t *tapRecorder) Finalize() (audiocapture.Capture, error) {
	capture, err := t.rec.Finalize()
	if err == nil {
		t.mu.Lock()
		t.prev = capture
		t.mu.Unlock()
	}
	return capture, err
}

func (t *tapRecorder) last() audiocapture.Capture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prev
}
