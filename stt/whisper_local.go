package stt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Anon-E-Mus/cutewhisper/wavfile"
)

// WhisperLocal transcribes on-device through the whisper.cpp CLI and a ggml
// model file. This is the default provider: no audio ever leaves the machine.
type WhisperLocal struct {
	modelSize string
	modelPath string
	binPath   string
	tempDir   string

	mu    sync.RWMutex
	ready bool
}

// WhisperLocalConfig configures the local provider.
type WhisperLocalConfig struct {
	ModelSize string // "tiny", "base", "small", "medium", "large"
	ModelDir  string // where ggml models live; defaults under the home dir
	BinPath   string // whisper.cpp binary; discovered on PATH when empty
	TempDir   string // scratch dir for per-call WAV files
}

// ggml model download sources, sizes approximate.
var whisperModels = map[string]struct {
	URL  string
	Size int64
}{
	"tiny":   {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin", 75 << 20},
	"base":   {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin", 150 << 20},
	"small":  {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin", 500 << 20},
	"medium": {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin", 1500 << 20},
	"large":  {"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin", 3000 << 20},
}

// NewWhisperLocal creates the local whisper.cpp provider.
func NewWhisperLocal(cfg WhisperLocalConfig) (*WhisperLocal, error) {
	if cfg.ModelSize == "" {
		cfg.ModelSize = "base"
	}
	if _, ok := whisperModels[cfg.ModelSize]; !ok {
		return nil, fmt.Errorf("invalid whisper model size: %s", cfg.ModelSize)
	}
	if cfg.ModelDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		cfg.ModelDir = filepath.Join(home, ".cutewhisper", "models")
	}

	w := &WhisperLocal{
		modelSize: cfg.ModelSize,
		modelPath: filepath.Join(cfg.ModelDir, fmt.Sprintf("ggml-%s.bin", cfg.ModelSize)),
		binPath:   cfg.BinPath,
		tempDir:   cfg.TempDir,
	}
	if w.binPath == "" {
		w.binPath = findWhisperBinary()
	}

	if _, err := os.Stat(w.modelPath); err == nil && w.binPath != "" {
		w.ready = true
	}
	return w, nil
}

func (w *WhisperLocal) Name() string { return "whisper-local" }

func (w *WhisperLocal) DisplayName() string {
	return fmt.Sprintf("Whisper Local (%s)", w.modelSize)
}

func (w *WhisperLocal) IsLocal() bool { return true }

func (w *WhisperLocal) IsReady() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ready
}

func (w *WhisperLocal) Close() error { return nil }

// Setup downloads the ggml model when missing. The whisper.cpp binary is
// not installed here; Setup fails with guidance when it cannot be found.
func (w *WhisperLocal) Setup(progress func(percent int)) error {
	w.mu.RLock()
	ready := w.ready
	w.mu.RUnlock()
	if ready {
		return nil
	}

	if w.binPath == "" {
		w.binPath = findWhisperBinary()
	}
	if w.binPath == "" {
		return fmt.Errorf("whisper.cpp binary not found on PATH; install whisper.cpp (whisper-cli)")
	}

	if _, err := os.Stat(w.modelPath); err != nil {
		model := whisperModels[w.modelSize]
		if err := os.MkdirAll(filepath.Dir(w.modelPath), 0755); err != nil {
			return fmt.Errorf("create model dir: %w", err)
		}
		if err := downloadFile(model.URL, w.modelPath, model.Size, progress); err != nil {
			return fmt.Errorf("download %s model: %w", w.modelSize, err)
		}
	}

	w.mu.Lock()
	w.ready = true
	w.mu.Unlock()
	if progress != nil {
		progress(100)
	}
	return nil
}

// whisperOutput mirrors the whisper.cpp -oj JSON layout.
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text    string `json:"text"`
		Offsets struct {
			From int64 `json:"from"` // milliseconds
			To   int64 `json:"to"`
		} `json:"offsets"`
	} `json:"transcription"`
}

// Transcribe writes samples to a temp WAV and runs the whisper.cpp CLI on it.
func (w *WhisperLocal) Transcribe(samples []float32, language string) (*TranscribeResult, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("%w: whisper model not downloaded", ErrNotReady)
	}

	wavPath, err := wavfile.WriteTemp(w.tempDir, samples, 16000)
	if err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}
	defer os.Remove(wavPath)

	args := []string{
		"-m", w.modelPath,
		"-f", wavPath,
		"-oj",
		"--no-prints",
	}
	if language != "" && language != "auto" {
		args = append(args, "-l", language)
	}

	cmd := exec.Command(w.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper.cpp: %w: %s", err, stderr.String())
	}

	// -oj writes <input>.json next to the audio file.
	jsonPath := wavPath + ".json"
	defer os.Remove(jsonPath)
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		// Older builds print JSON to stdout instead.
		data = stdout.Bytes()
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		// Fall back to whatever plain text the CLI produced.
		return &TranscribeResult{Text: strings.TrimSpace(stdout.String())}, nil
	}
	return convertWhisperOutput(&out), nil
}

func convertWhisperOutput(out *whisperOutput) *TranscribeResult {
	result := &TranscribeResult{
		Language: out.Result.Language,
		Segments: make([]Segment, 0, len(out.Transcription)),
	}
	var text strings.Builder
	for _, seg := range out.Transcription {
		text.WriteString(seg.Text)
		result.Segments = append(result.Segments, Segment{
			Text:  strings.TrimSpace(seg.Text),
			Start: time.Duration(seg.Offsets.From) * time.Millisecond,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
		})
	}
	result.Text = strings.TrimSpace(text.String())
	return result
}

// findWhisperBinary looks for a whisper.cpp CLI on PATH and in the usual
// install locations. whisper-cli is the current upstream name.
func findWhisperBinary() string {
	names := []string{"whisper-cli", "whisper-cpp", "whisper", "main"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	home, _ := os.UserHomeDir()
	dirs := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		filepath.Join(home, ".local", "bin"),
		filepath.Join(home, "whisper.cpp"),
	}
	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// downloadFile fetches url into path via a .tmp sibling, reporting progress.
func downloadFile(url, path string, expectedSize int64, progress func(percent int)) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	var downloaded int64
	last := 0
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write model: %w", werr)
			}
			downloaded += int64(n)
			if expectedSize > 0 && progress != nil {
				if pct := int(downloaded * 100 / expectedSize); pct > last && pct < 100 {
					last = pct
					progress(pct)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}
