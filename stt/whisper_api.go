package stt

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Anon-E-Mus/cutewhisper/wavfile"
)

// WhisperAPI transcribes through the OpenAI audio transcription endpoint.
// It is opt-in: the default configuration never sends audio off the machine.
type WhisperAPI struct {
	client  openai.Client
	model   string
	tempDir string

	mu    sync.RWMutex
	ready bool
}

// WhisperAPIConfig configures the remote provider.
type WhisperAPIConfig struct {
	APIKey  string
	BaseURL string // optional, for self-hosted compatible endpoints
	Model   string // optional, defaults to whisper-1
	TempDir string // scratch dir for per-call WAV files
}

const apiCallTimeout = 60 * time.Second

// NewWhisperAPI creates the remote provider.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	return &WhisperAPI{
		client:  openai.NewClient(opts...),
		model:   model,
		tempDir: cfg.TempDir,
		ready:   cfg.APIKey != "",
	}
}

func (w *WhisperAPI) Name() string        { return "whisper-api" }
func (w *WhisperAPI) DisplayName() string { return "OpenAI Whisper API" }
func (w *WhisperAPI) IsLocal() bool       { return false }
func (w *WhisperAPI) Close() error        { return nil }

func (w *WhisperAPI) IsReady() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ready
}

// Setup validates that an API key was configured; nothing to download.
func (w *WhisperAPI) Setup(_ func(percent int)) error {
	if !w.IsReady() {
		return fmt.Errorf("%w: API key required", ErrNotReady)
	}
	return nil
}

// Transcribe uploads samples as a WAV file to the transcription endpoint.
func (w *WhisperAPI) Transcribe(samples []float32, language string) (*TranscribeResult, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("%w: API key required", ErrNotReady)
	}

	wavPath, err := wavfile.WriteTemp(w.tempDir, samples, 16000)
	if err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}
	defer os.Remove(wavPath)

	f, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), apiCallTimeout)
	defer cancel()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(w.model),
	}
	// The endpoint rejects "auto"; omitting the field means auto-detect.
	lang := language
	if lang == "auto" {
		lang = ""
	}
	if lang != "" {
		params.Language = openai.String(lang)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}

	// The basic transcription response carries no detected language, so
	// only a caller-supplied hint can be reported.
	return &TranscribeResult{Text: resp.Text, Language: lang}, nil
}
