package injection

import (
	"errors"
	"testing"
	"time"
)

// fakeClipboard records writes and can fail on demand.
type fakeClipboard struct {
	content  string
	readErr  error
	writeErr error
	writes   []string
}

func (f *fakeClipboard) ReadAll() (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.content, nil
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.content = text
	f.writes = append(f.writes, text)
	return nil
}

type fakeKeyboard struct {
	pasteErr error
	typeErr  error
	pastes   int
	typed    []string
}

func (f *fakeKeyboard) Paste() error {
	if f.pasteErr != nil {
		return f.pasteErr
	}
	f.pastes++
	return nil
}

func (f *fakeKeyboard) Type(text string) error {
	if f.typeErr != nil {
		return f.typeErr
	}
	f.typed = append(f.typed, text)
	return nil
}

func newTestInjector(clip *fakeClipboard, kb *fakeKeyboard, preserve bool) *Injector {
	return New(clip, kb, Options{PreserveClipboard: preserve, SettleDelay: time.Millisecond})
}

func TestInjectPreserveRoundTrip(t *testing.T) {
	clip := &fakeClipboard{content: "prior"}
	kb := &fakeKeyboard{}
	in := newTestInjector(clip, kb, true)

	outcome, err := in.Inject("hello world")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if outcome != OutcomeDelivered {
		t.Fatalf("outcome = %v, want delivered", outcome)
	}
	if kb.pastes != 1 {
		t.Errorf("paste fired %d times, want 1", kb.pastes)
	}
	// Clipboard-neutral: content equals the pre-injection value.
	if clip.content != "prior" {
		t.Errorf("clipboard = %q after inject, want %q", clip.content, "prior")
	}
	if len(clip.writes) != 2 || clip.writes[0] != "hello world" {
		t.Errorf("writes = %v, want text then restore", clip.writes)
	}
}

func TestInjectWithoutPreserve(t *testing.T) {
	clip := &fakeClipboard{content: "prior"}
	kb := &fakeKeyboard{}
	in := newTestInjector(clip, kb, false)

	outcome, err := in.Inject("hello")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if outcome != OutcomeDeliveredWithoutRestore {
		t.Fatalf("outcome = %v, want delivered-without-restore", outcome)
	}
	if clip.content != "hello" {
		t.Errorf("clipboard = %q, want injected text to remain", clip.content)
	}
}

func TestInjectClipboardWriteFailsFallsBackToTypingOnce(t *testing.T) {
	clip := &fakeClipboard{content: "prior", writeErr: errors.New("clipboard locked")}
	kb := &fakeKeyboard{}
	in := newTestInjector(clip, kb, true)

	outcome, err := in.Inject("hello")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if outcome != OutcomeFellBackToTyping {
		t.Fatalf("outcome = %v, want fell-back-to-typing", outcome)
	}
	if len(kb.typed) != 1 || kb.typed[0] != "hello" {
		t.Errorf("typed = %v, want exactly one typing pass", kb.typed)
	}
	if kb.pastes != 0 {
		t.Errorf("paste fired %d times on typing path, want 0", kb.pastes)
	}
}

func TestInjectBothPathsFail(t *testing.T) {
	clip := &fakeClipboard{writeErr: errors.New("clipboard locked")}
	kb := &fakeKeyboard{typeErr: errors.New("no input access")}
	in := newTestInjector(clip, kb, true)

	outcome, err := in.Inject("hello")
	if err == nil {
		t.Fatal("expected error when both paths fail")
	}
	if !errors.Is(err, ErrClipboardWrite) {
		t.Errorf("error %v does not wrap ErrClipboardWrite", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", outcome)
	}
}

func TestInjectSnapshotReadFailureSkipsRestore(t *testing.T) {
	clip := &fakeClipboard{readErr: errors.New("format unavailable")}
	kb := &fakeKeyboard{}
	in := newTestInjector(clip, kb, true)

	outcome, err := in.Inject("hello")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if outcome != OutcomeDeliveredWithoutRestore {
		t.Fatalf("outcome = %v, want delivered-without-restore", outcome)
	}
	if len(clip.writes) != 1 {
		t.Errorf("writes = %v, restore must be skipped with no snapshot", clip.writes)
	}
}

func TestInjectPasteFailureTypesAndRestores(t *testing.T) {
	clip := &fakeClipboard{content: "prior"}
	kb := &fakeKeyboard{pasteErr: errors.New("inject keystroke rejected")}
	in := newTestInjector(clip, kb, true)

	outcome, err := in.Inject("hello")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if outcome != OutcomeFellBackToTyping {
		t.Fatalf("outcome = %v, want fell-back-to-typing", outcome)
	}
	if len(kb.typed) != 1 {
		t.Errorf("typed %d times, want 1", len(kb.typed))
	}
	// The clipboard was overwritten before paste failed; it must be restored.
	if clip.content != "prior" {
		t.Errorf("clipboard = %q, want snapshot restored", clip.content)
	}
}

func TestKeyForRune(t *testing.T) {
	tests := []struct {
		r         rune
		wantShift bool
		wantOK    bool
	}{
		{'a', false, true},
		{'Z', true, true},
		{'7', false, true},
		{' ', false, true},
		{'\n', false, true},
		{'é', false, false},
		{'!', false, false},
	}
	for _, tt := range tests {
		_, shift, ok := keyForRune(tt.r)
		if ok != tt.wantOK || shift != tt.wantShift {
			t.Errorf("keyForRune(%q) = shift=%v ok=%v, want shift=%v ok=%v",
				tt.r, shift, ok, tt.wantShift, tt.wantOK)
		}
	}
}
