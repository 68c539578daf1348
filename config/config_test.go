package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	want := DefaultConfig()
	if cfg.Hotkey != want.Hotkey {
		t.Errorf("Hotkey = %q, want %q", cfg.Hotkey, want.Hotkey)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Whisper.Provider != "local" {
		t.Errorf("Provider = %q, want %q", cfg.Whisper.Provider, "local")
	}
}

func TestSaveToAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Hotkey = "cmd+shift+d"
	cfg.Whisper.Provider = "api"
	cfg.Whisper.APIKey = "sk-test"
	cfg.Injection.SettleMs = 150

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if got.Hotkey != "cmd+shift+d" {
		t.Errorf("Hotkey = %q, want %q", got.Hotkey, "cmd+shift+d")
	}
	if got.Whisper.Provider != "api" || got.Whisper.APIKey != "sk-test" {
		t.Errorf("Whisper = %+v, want api provider with key", got.Whisper)
	}
	if got.SettleDelay().Milliseconds() != 150 {
		t.Errorf("SettleDelay() = %v, want 150ms", got.SettleDelay())
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{"hotkey": "alt+z"}`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Hotkey != "alt+z" {
		t.Errorf("Hotkey = %q, want %q", cfg.Hotkey, "alt+z")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want default 16000", cfg.Audio.SampleRate)
	}
	if cfg.TranscribeTimeoutSeconds != 120 {
		t.Errorf("TranscribeTimeoutSeconds = %d, want default 120", cfg.TranscribeTimeoutSeconds)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty hotkey", func(c *Config) { c.Hotkey = "  " }, "hotkey"},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "sample rate"},
		{"bad provider", func(c *Config) { c.Whisper.Provider = "cloud" }, "provider"},
		{"negative settle", func(c *Config) { c.Injection.SettleMs = -1 }, "settle"},
		{"zero timeout", func(c *Config) { c.TranscribeTimeoutSeconds = 0 }, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestInvalidJSONFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{not json`)

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() with invalid JSON succeeded, want error")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
