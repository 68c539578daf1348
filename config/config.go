// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	appName        = "cutewhisper"
	configFileName = "config.json"
)

// Config represents the application configuration.
type Config struct {
	// Hotkey is the push-to-talk combination, e.g. "ctrl+space".
	Hotkey string `json:"hotkey"`

	Audio         AudioConfig     `json:"audio"`
	Whisper       WhisperConfig   `json:"whisper"`
	Injection     InjectionConfig `json:"injection"`
	History       HistoryConfig   `json:"history"`
	Notifications bool            `json:"notifications"`

	// TranscribeTimeoutSeconds bounds how long a single transcription
	// may run before the session is abandoned.
	TranscribeTimeoutSeconds int `json:"transcribe_timeout_seconds"`
}

// AudioConfig controls microphone capture.
type AudioConfig struct {
	SampleRate      int `json:"sample_rate"`
	Channels        int `json:"channels"`
	FramesPerBuffer int `json:"frames_per_buffer"`
}

// WhisperConfig selects and configures the speech-to-text provider.
type WhisperConfig struct {
	// Provider is "local" (whisper.cpp) or "api" (OpenAI-compatible).
	Provider  string `json:"provider"`
	ModelSize string `json:"model_size"`
	ModelDir  string `json:"model_dir,omitempty"`
	BinPath   string `json:"bin_path,omitempty"`
	// Language is an ISO 639-1 hint, or "auto" for detection.
	Language string `json:"language"`
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	APIModel string `json:"api_model,omitempty"`
}

// InjectionConfig controls how transcribed text reaches the focused app.
type InjectionConfig struct {
	PreserveClipboard bool `json:"preserve_clipboard"`
	SettleMs          int  `json:"settle_ms"`
}

// HistoryConfig controls the transcription history store.
type HistoryConfig struct {
	Enabled bool `json:"enabled"`
	// Path overrides the default database location.
	Path string `json:"path,omitempty"`
	// KeepAudio saves the recorded WAV alongside each entry.
	KeepAudio     bool   `json:"keep_audio"`
	RecordingsDir string `json:"recordings_dir,omitempty"`
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}
	return c.SaveTo(path)
}

// SaveTo persists the configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate checks the configuration for values the app cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Hotkey) == "" {
		return fmt.Errorf("hotkey required")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio sample rate must be positive")
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio channels must be positive")
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio frames per buffer must be positive")
	}
	switch c.Whisper.Provider {
	case "local", "api":
	default:
		return fmt.Errorf("unknown whisper provider: %s", c.Whisper.Provider)
	}
	if c.Injection.SettleMs < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.TranscribeTimeoutSeconds <= 0 {
		return fmt.Errorf("transcribe timeout must be positive")
	}
	return nil
}

// TranscribeTimeout returns the transcription deadline as a duration.
func (c *Config) TranscribeTimeout() time.Duration {
	return time.Duration(c.TranscribeTimeoutSeconds) * time.Second
}

// SettleDelay returns the post-paste settle window as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Injection.SettleMs) * time.Millisecond
}

// HistoryPath returns the history database path, defaulting next to the
// config file.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, "history"), nil
}

// RecordingsDir returns where saved recordings live, defaulting next to
// the config file.
func (c *Config) RecordingsDir() (string, error) {
	if c.History.RecordingsDir != "" {
		return c.History.RecordingsDir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, "recordings"), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Hotkey: "ctrl+space",
		Audio: AudioConfig{
			SampleRate:      16000,
			Channels:        1,
			FramesPerBuffer: 1024,
		},
		Whisper: WhisperConfig{
			Provider:  "local",
			ModelSize: "base",
			Language:  "auto",
		},
		Injection: InjectionConfig{
			PreserveClipboard: true,
			SettleMs:          300,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Notifications:            true,
		TranscribeTimeoutSeconds: 120,
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}
